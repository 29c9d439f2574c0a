package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gookit/color"

	"coffre/models"
	"coffre/search"
	"coffre/totp"
)

var (
	errColor         = color.FgLightRed
	infoColor        = color.FgLightMagenta
	inputPromptColor = color.FgYellow
	keyColor         = color.FgLightGreen
	passColor        = color.New(color.FgBlue, color.BgBlue)
)

var errNotFound = errors.New("no credential matched the query")

// fieldAliases map the short names people type to stored field names.
var fieldAliases = map[string]string{
	"pass":  "password",
	"user":  "username",
	"mail":  "email",
	"2fa":   "totp_secret",
	"totp":  "totp_secret",
	"notes": "notes",
}

func canonicalField(name string) string {
	if full, ok := fieldAliases[strings.ToLower(name)]; ok {
		return full
	}
	return strings.ToLower(name)
}

// resolve finds exactly one credential for a user query: exact id
// first, then exact title, then a ranked text search. Ambiguity is an
// error listing the candidates.
func (u *uiContext) resolve(query string) (*models.CredentialRecord, error) {
	if cred, err := u.mgr.Peek(query); err == nil {
		return cred, nil
	}

	list, err := u.mgr.List()
	if err != nil {
		return nil, err
	}
	for _, cred := range list {
		if strings.EqualFold(cred.Title, query) {
			return cred, nil
		}
	}

	results, err := u.mgr.Search(search.TextQuery(query))
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, errNotFound
	case 1:
		return results[0].Credential, nil
	}

	errColor.Printf("%q is ambiguous:\n", query)
	for _, r := range results {
		fmt.Fprintf(u.out, "  %s  %s\n", r.Credential.ID, r.Credential.Title)
	}
	return nil, errors.New("ambiguous query")
}

func (u *uiContext) cmdCreate() error {
	pwd, err := u.promptNewPassword("master")
	if err != nil {
		return err
	}

	strength := models.ValidatePasswordStrength(pwd)
	for _, warning := range strength.Warnings {
		infoColor.Println("warning:", warning)
	}

	if _, err := u.mgr.Create(u.filename, pwd); err != nil {
		return err
	}
	fmt.Fprintf(u.out, "created %s\n", u.shortFilename)
	return nil
}

func (u *uiContext) cmdAdd(title string) error {
	cred := models.NewCredential(title, "login")

	username, err := u.in.Line(inputPromptColor.Sprint("username: "))
	if err != nil {
		return err
	}
	if len(username) > 0 {
		cred.SetField("username", models.UsernameField(username))
	}

	email, err := u.in.Line(inputPromptColor.Sprint("email (blank for none): "))
	if err != nil {
		return err
	}
	if len(email) > 0 {
		cred.SetField("email", models.EmailField(email))
	}

	password, err := u.in.LineHidden(inputPromptColor.Sprint("password (blank to generate): "))
	if err != nil {
		return err
	}
	if len(password) == 0 {
		password, err = genPassword(flagGenLength, 2, 2, 2, 2, -1)
		if err != nil {
			return err
		}
		infoColor.Println("generated a password")
	}
	cred.SetField("password", models.PasswordField(password))

	tagLine, err := u.in.Line(inputPromptColor.Sprint("tags (comma separated): "))
	if err != nil {
		return err
	}
	for _, tag := range strings.Split(tagLine, ",") {
		if tag = strings.TrimSpace(tag); len(tag) > 0 {
			cred.AddTag(tag)
		}
	}

	if err := u.mgr.Add(cred); err != nil {
		return err
	}

	// Warn about near-duplicate titles after the fact; an add is never
	// blocked by similarity.
	similar, err := u.mgr.SimilarTitles(title, 0.8)
	if err == nil && len(similar) > 1 {
		infoColor.Println("similar entries already exist:")
		for _, r := range similar {
			if r.Credential.ID != cred.ID {
				fmt.Fprintf(u.out, "  %s\n", r.Credential.Title)
			}
		}
	}

	fmt.Fprintf(u.out, "added %s (%s)\n", cred.Title, cred.ID)
	return u.saveStore()
}

func (u *uiContext) cmdList(query string) error {
	var ids, titles []string
	if len(query) == 0 {
		sums, err := u.mgr.Summaries()
		if err != nil {
			return err
		}
		sort.Slice(sums, func(i, j int) bool { return sums[i].Title < sums[j].Title })
		for _, s := range sums {
			ids = append(ids, s.ID)
			titles = append(titles, s.Title)
		}
	} else {
		results, err := u.mgr.Search(search.TextQuery(query))
		if err != nil {
			return err
		}
		for _, r := range results {
			ids = append(ids, r.Credential.ID)
			titles = append(titles, r.Credential.Title)
		}
	}

	for i := range ids {
		fmt.Fprintf(u.out, "%s  %s\n", ids[i], keyColor.Sprint(titles[i]))
	}
	infoColor.Printf("%d credentials\n", len(ids))
	return nil
}

func (u *uiContext) cmdShow(query string, sensitive bool) error {
	cred, err := u.resolve(query)
	if err != nil {
		return err
	}
	if !sensitive {
		cred = cred.Sanitized()
	}

	fmt.Fprintf(u.out, "%s %s\n", keyColor.Sprint("title:"), cred.Title)
	fmt.Fprintf(u.out, "%s %s\n", keyColor.Sprint("type: "), cred.Type)
	if len(cred.Tags) > 0 {
		fmt.Fprintf(u.out, "%s %s\n", keyColor.Sprint("tags: "), strings.Join(cred.Tags, ", "))
	}

	names := make([]string, 0, len(cred.Fields))
	for name := range cred.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := cred.Fields[name]
		value := f.Value
		if f.Sensitive && sensitive {
			// Foreground and background painted the same color, so the
			// value only shows up when selected in the terminal.
			value = passColor.Sprint(value)
		}
		fmt.Fprintf(u.out, "%s %s\n", keyColor.Sprintf("%s:", name), value)
	}

	if len(cred.Notes) > 0 {
		fmt.Fprintf(u.out, "%s %s\n", keyColor.Sprint("notes:"), cred.Notes)
	}
	fmt.Fprintf(u.out, "%s %s\n", keyColor.Sprint("updated:"),
		time.Unix(cred.UpdatedAt, 0).Format("2006-01-02 15:04:05"))
	return nil
}

func (u *uiContext) cmdSearch(query string) error {
	q := search.TextQuery(query).
		WithRegex(flagRegex).
		WithSensitive(flagSensitive).
		WithFavoritesOnly(flagFavorites).
		InFolder(flagFolder)
	if len(flagType) > 0 {
		q = q.WithType(flagType)
	}
	for _, tag := range strings.Split(flagTag, ",") {
		if tag = strings.TrimSpace(tag); len(tag) > 0 {
			q.RequiredTags = append(q.RequiredTags, tag)
		}
	}

	results, err := u.mgr.Search(q)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(u.out, "%5.2f  %s  %s\n", r.Score, r.Credential.ID, keyColor.Sprint(r.Credential.Title))
	}
	infoColor.Printf("%d matches\n", len(results))
	return nil
}

func (u *uiContext) cmdCopy(query, field string) error {
	cred, err := u.resolve(query)
	if err != nil {
		return err
	}

	name := canonicalField(field)
	if name == "notes" {
		return u.copyToClipboard(cred.Notes)
	}

	f, ok := cred.Field(name)
	if !ok {
		return fmt.Errorf("%s has no %q field", cred.Title, name)
	}
	return u.copyToClipboard(f.Value)
}

func (u *uiContext) cmdTotp(query string) error {
	cred, err := u.resolve(query)
	if err != nil {
		return err
	}

	f, ok := cred.Field("totp_secret")
	if !ok {
		return fmt.Errorf("%s has no totp secret", cred.Title)
	}

	code, err := totp.GenerateCode(f.Value)
	if err != nil {
		return err
	}

	remaining := totp.SecondsUntilRefresh(totp.DefaultTimeStep)
	infoColor.Printf("code valid for %d more seconds\n", remaining)
	return u.copyToClipboard(code)
}

func (u *uiContext) cmdRemove(query string, force bool) error {
	cred, err := u.resolve(query)
	if err != nil {
		return err
	}

	if !force {
		answer, err := u.in.Line(inputPromptColor.Sprintf("delete %q? (y/N): ", cred.Title))
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(u.out, "aborted")
			return nil
		}
	}

	if _, err := u.mgr.Delete(cred.ID); err != nil {
		return err
	}
	fmt.Fprintf(u.out, "deleted %s\n", cred.Title)
	return u.saveStore()
}

func (u *uiContext) cmdPasswd() error {
	pwd, err := u.promptNewPassword("master")
	if err != nil {
		return err
	}

	if err := u.mgr.ChangePassword(pwd); err != nil {
		return err
	}
	return u.saveStore()
}

func (u *uiContext) cmdExport(outFile string) error {
	creds, err := u.mgr.Export()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if outFile == "-" {
		_, err = u.out.Write(data)
		return err
	}
	if err := os.WriteFile(outFile, data, 0o600); err != nil {
		return err
	}
	infoColor.Printf("exported %d credentials to %s\n", len(creds), outFile)
	return nil
}

func (u *uiContext) cmdImport(inFile string) error {
	var data []byte
	var err error
	if inFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inFile)
	}
	if err != nil {
		return err
	}

	var creds []*models.CredentialRecord
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("parse import: %w", err)
	}

	n, err := u.mgr.Import(creds)
	if err != nil {
		return err
	}
	infoColor.Printf("imported %d of %d credentials\n", n, len(creds))
	return u.saveStore()
}

func (u *uiContext) cmdGen() error {
	password, err := genPassword(flagGenLength, 2, 2, 2, 2, -1)
	if err != nil {
		return err
	}
	return u.copyToClipboard(password)
}

func (u *uiContext) copyToClipboard(txt string) error {
	if err := clipboard.WriteAll(txt); err != nil {
		errColor.Println("Failed to copy text to clipboard")
		return err
	}
	infoColor.Println("Copied value to clipboard")

	if flagNoClearClip || u.cfg.ClipClearSeconds <= 0 {
		return nil
	}

	infoColor.Printf("clearing clipboard in %d seconds, ctrl-c to leave it\n", u.cfg.ClipClearSeconds)
	time.Sleep(time.Duration(u.cfg.ClipClearSeconds) * time.Second)
	if current, err := clipboard.ReadAll(); err == nil && current == txt {
		return clipboard.WriteAll("")
	}
	return nil
}
