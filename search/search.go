// Package search ranks credentials against multi-criteria queries:
// filters narrow the candidate set, text matching scores what remains,
// and results come back ordered best first.
package search

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"coffre/models"
)

// Match locations, for highlighting.
const (
	LocTitle      = "title"
	LocFieldValue = "field_value"
	LocFieldLabel = "field_label"
	LocNotes      = "notes"
	LocTag        = "tag"
	LocType       = "credential_type"
)

// Weights applied to per-text scores by location.
const (
	weightTitle = 3.0
	weightTag   = 2.0
	weightType  = 1.5
	weightLabel = 1.2
	weightValue = 1.0
	weightNotes = 0.8
)

// Query describes one search. The zero value matches everything; use
// NewQuery for the usual defaults (field values and notes searched,
// sensitive fields skipped).
type Query struct {
	// Text to look for. Empty means filter-only search.
	Text string

	// RequiredTags must all be present; OptionalTags need at least one
	// present when non-empty.
	RequiredTags []string
	OptionalTags []string

	// Types restricts to these credential types when non-empty.
	Types []string

	// FieldTypes keeps only credentials carrying at least one field of
	// these types.
	FieldTypes []models.FieldType

	IncludeSensitive bool
	CaseSensitive    bool
	UseRegex         bool

	SearchFieldValues bool
	SearchNotes       bool

	FavoritesOnly bool

	// FolderPath keeps only credentials whose folder starts with it.
	FolderPath string
}

// NewQuery returns a query with default scanning behavior.
func NewQuery() Query {
	return Query{SearchFieldValues: true, SearchNotes: true}
}

// TextQuery is shorthand for a default query over text.
func TextQuery(text string) Query {
	q := NewQuery()
	q.Text = text
	return q
}

// TagQuery is shorthand for a default query requiring all given tags.
func TagQuery(tags ...string) Query {
	q := NewQuery()
	q.RequiredTags = tags
	return q
}

// WithRegex toggles regex interpretation of the query text.
func (q Query) WithRegex(on bool) Query {
	q.UseRegex = on
	return q
}

// WithCaseSensitive toggles case sensitivity.
func (q Query) WithCaseSensitive(on bool) Query {
	q.CaseSensitive = on
	return q
}

// WithSensitive toggles searching inside sensitive field values.
func (q Query) WithSensitive(on bool) Query {
	q.IncludeSensitive = on
	return q
}

// WithFavoritesOnly restricts results to favorites.
func (q Query) WithFavoritesOnly(on bool) Query {
	q.FavoritesOnly = on
	return q
}

// InFolder restricts results to a folder subtree.
func (q Query) InFolder(folder string) Query {
	q.FolderPath = folder
	return q
}

// WithType adds a credential type filter.
func (q Query) WithType(credType string) Query {
	q.Types = append(q.Types, credType)
	return q
}

// Match records where query text was found, for highlighting.
type Match struct {
	Location  string
	FieldName string
	Start     int
	End       int
	Matched   string
}

// Result pairs a matching credential with its relevance.
type Result struct {
	Credential *models.CredentialRecord
	Score      float64
	Matches    []Match
}

// Search scores every credential against the query and returns matches
// ordered by descending score. Ties keep id order so output is stable
// across runs. An invalid regex matches nothing.
func Search(credentials map[string]*models.CredentialRecord, q Query) []Result {
	var re *regexp.Regexp
	if q.UseRegex && len(q.Text) > 0 {
		pattern := q.Text
		if !q.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil
		}
	}

	ids := make([]string, 0, len(credentials))
	for id := range credentials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []Result
	for _, id := range ids {
		if r, ok := matchCredential(credentials[id], q, re); ok {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func matchCredential(cred *models.CredentialRecord, q Query, re *regexp.Regexp) (Result, bool) {
	if q.FavoritesOnly && !cred.Favorite {
		return Result{}, false
	}
	if len(q.FolderPath) > 0 && !strings.HasPrefix(cred.FolderPath, q.FolderPath) {
		return Result{}, false
	}
	if len(q.Types) > 0 && !containsString(q.Types, cred.Type) {
		return Result{}, false
	}

	for _, tag := range q.RequiredTags {
		if !cred.HasTag(tag) {
			return Result{}, false
		}
	}
	if len(q.OptionalTags) > 0 {
		any := false
		for _, tag := range q.OptionalTags {
			if cred.HasTag(tag) {
				any = true
				break
			}
		}
		if !any {
			return Result{}, false
		}
	}

	if len(q.FieldTypes) > 0 {
		any := false
		for _, f := range cred.Fields {
			for _, ft := range q.FieldTypes {
				if f.Type == ft {
					any = true
					break
				}
			}
		}
		if !any {
			return Result{}, false
		}
	}

	var score float64
	var matches []Match
	if len(q.Text) > 0 {
		score, matches = searchCredentialText(cred, q, re)
		if score == 0 {
			return Result{}, false
		}
	} else {
		score = 1.0
	}

	score += bonusScore(cred, q)
	return Result{Credential: cred, Score: score, Matches: matches}, true
}

func searchCredentialText(cred *models.CredentialRecord, q Query, re *regexp.Regexp) (float64, []Match) {
	var total float64
	var matches []Match

	add := func(text, location, fieldName string, weight float64) {
		score, found := searchInText(text, location, fieldName, q, re)
		if len(found) > 0 {
			total += score * weight
			matches = append(matches, found...)
		}
	}

	add(cred.Title, LocTitle, "", weightTitle)
	add(cred.Type, LocType, "", weightType)
	for _, tag := range cred.Tags {
		add(tag, LocTag, "", weightTag)
	}

	if q.SearchFieldValues {
		names := make([]string, 0, len(cred.Fields))
		for name := range cred.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			f := cred.Fields[name]
			if f.Sensitive && !q.IncludeSensitive {
				continue
			}
			add(f.Value, LocFieldValue, name, weightValue)
			add(f.Label, LocFieldLabel, name, weightLabel)
		}
	}

	if q.SearchNotes && len(cred.Notes) > 0 {
		add(cred.Notes, LocNotes, "", weightNotes)
	}

	return total, matches
}

func searchInText(text, location, fieldName string, q Query, re *regexp.Regexp) (float64, []Match) {
	if len(text) == 0 || len(q.Text) == 0 {
		return 0, nil
	}

	var matches []Match
	if re != nil {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Location:  location,
				FieldName: fieldName,
				Start:     loc[0],
				End:       loc[1],
				Matched:   text[loc[0]:loc[1]],
			})
		}
	} else {
		needle := q.Text
		haystack := text
		if !q.CaseSensitive {
			needle = strings.ToLower(needle)
			haystack = strings.ToLower(haystack)
		}

		start := 0
		for {
			pos := strings.Index(haystack[start:], needle)
			if pos < 0 {
				break
			}
			abs := start + pos
			matches = append(matches, Match{
				Location:  location,
				FieldName: fieldName,
				Start:     abs,
				End:       abs + len(needle),
				Matched:   text[abs : abs+len(needle)],
			})
			start = abs + 1
		}
	}

	if len(matches) == 0 {
		return 0, nil
	}
	return textMatchScore(text, q.Text, matches), matches
}

// textMatchScore combines coverage (how much of the text the matches
// span), an exact or prefix/suffix bonus, and a word-boundary bonus
// averaged across matches.
func textMatchScore(text, searchText string, matches []Match) float64 {
	textLen := float64(len(text))
	searchLen := float64(len(searchText))
	matchCount := float64(len(matches))

	coverage := (searchLen * matchCount) / textLen

	textLower := strings.ToLower(text)
	searchLower := strings.ToLower(searchText)
	var exactBonus float64
	switch {
	case textLower == searchLower:
		exactBonus = 0.8
	case strings.HasPrefix(textLower, searchLower) || strings.HasSuffix(textLower, searchLower):
		exactBonus = 0.2
	}

	var boundary float64
	for _, m := range matches {
		atStart := m.Start == 0 || !isAlphanumeric(text[m.Start-1])
		atEnd := m.End >= len(text) || !isAlphanumeric(text[m.End])
		switch {
		case atStart && atEnd:
			boundary += 0.2
		case atStart || atEnd:
			boundary += 0.1
		}
	}
	boundary /= matchCount

	return coverage + exactBonus + boundary
}

func bonusScore(cred *models.CredentialRecord, q Query) float64 {
	var bonus float64

	if cred.Favorite {
		bonus += 0.1
	}

	const thirtyDays = 30 * 24 * 60 * 60
	if cred.AccessedAt > time.Now().Unix()-thirtyDays {
		bonus += 0.05
	}

	for _, tag := range q.RequiredTags {
		if cred.HasTag(tag) {
			bonus += 0.02
		}
	}
	for _, tag := range q.OptionalTags {
		if cred.HasTag(tag) {
			bonus += 0.02
		}
	}

	return bonus
}

// FindSimilarTitles returns credentials whose titles are within
// threshold similarity of title, best first. Similarity is normalized
// Levenshtein distance over the longer title.
func FindSimilarTitles(credentials map[string]*models.CredentialRecord, title string, threshold float64) []Result {
	ids := make([]string, 0, len(credentials))
	for id := range credentials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []Result
	for _, id := range ids {
		cred := credentials[id]
		sim := titleSimilarity(title, cred.Title)
		if sim >= threshold {
			results = append(results, Result{Credential: cred, Score: sim})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func titleSimilarity(a, b string) float64 {
	al := strings.ToLower(a)
	bl := strings.ToLower(b)
	if al == bl {
		return 1
	}

	maxLen := len([]rune(al))
	if n := len([]rune(bl)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}

	distance := fuzzy.LevenshteinDistance(al, bl)
	return (float64(maxLen) - float64(distance)) / float64(maxLen)
}

// ExtractAllTags returns the sorted set of tags in use.
func ExtractAllTags(credentials map[string]*models.CredentialRecord) []string {
	set := make(map[string]struct{})
	for _, cred := range credentials {
		for _, tag := range cred.Tags {
			set[tag] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// ExtractTypes returns the sorted set of credential types in use.
func ExtractTypes(credentials map[string]*models.CredentialRecord) []string {
	set := make(map[string]struct{})
	for _, cred := range credentials {
		set[cred.Type] = struct{}{}
	}
	return sortedKeys(set)
}

// ExtractFolderPaths returns the sorted set of folder paths in use,
// including every ancestor of a used path.
func ExtractFolderPaths(credentials map[string]*models.CredentialRecord) []string {
	set := make(map[string]struct{})
	for _, cred := range credentials {
		path := cred.FolderPath
		if len(path) == 0 {
			continue
		}
		set[path] = struct{}{}
		for {
			pos := strings.LastIndex(path, "/")
			if pos <= 0 {
				break
			}
			path = path[:pos]
			set[path] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isAlphanumeric(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
