package search

import (
	"testing"

	"coffre/models"
)

func testCredential(title, credType string) *models.CredentialRecord {
	c := models.NewCredential(title, credType)
	c.SetField("username", models.UsernameField("testuser"))
	c.SetField("password", models.PasswordField("testpass"))
	return c
}

func index(creds ...*models.CredentialRecord) map[string]*models.CredentialRecord {
	out := make(map[string]*models.CredentialRecord, len(creds))
	for _, c := range creds {
		out[c.ID] = c
	}
	return out
}

func TestSimpleTextSearch(t *testing.T) {
	creds := index(
		testCredential("Gmail Login", "login"),
		testCredential("Bank Account", "login"),
	)

	results := Search(creds, TextQuery("Gmail"))
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Credential.Title != "Gmail Login" {
		t.Errorf("title = %q", results[0].Credential.Title)
	}
	if len(results[0].Matches) == 0 {
		t.Error("expected match locations")
	}
}

func TestTagSearch(t *testing.T) {
	work := testCredential("Work Email", "login")
	work.AddTag("work")
	personal := testCredential("Personal Email", "login")
	personal.AddTag("personal")
	creds := index(work, personal)

	results := Search(creds, TagQuery("work"))
	if len(results) != 1 || results[0].Credential.Title != "Work Email" {
		t.Fatalf("tag search results wrong: %d", len(results))
	}
}

func TestCaseInsensitiveDefault(t *testing.T) {
	creds := index(testCredential("Gmail Login", "login"))

	if got := Search(creds, TextQuery("gmail")); len(got) != 1 {
		t.Errorf("case-insensitive results = %d, want 1", len(got))
	}
	if got := Search(creds, TextQuery("gmail").WithCaseSensitive(true)); len(got) != 0 {
		t.Errorf("case-sensitive results = %d, want 0", len(got))
	}
}

func TestRegexSearch(t *testing.T) {
	creds := index(
		testCredential("Gmail Account", "login"),
		testCredential("Yahoo Mail", "login"),
		testCredential("Bank Login", "login"),
	)

	results := Search(creds, TextQuery(`(Gmail|Yahoo)`).WithRegex(true))
	if len(results) != 2 {
		t.Fatalf("regex results = %d, want 2", len(results))
	}

	// An invalid pattern matches nothing rather than erroring.
	if got := Search(creds, TextQuery(`(unclosed`).WithRegex(true)); got != nil {
		t.Errorf("invalid regex results = %d, want none", len(got))
	}
}

func TestFieldValueSearch(t *testing.T) {
	c := testCredential("Test Account", "login")
	c.SetField("username", models.UsernameField("john.doe"))
	creds := index(c)

	results := Search(creds, TextQuery("john.doe"))
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	found := false
	for _, m := range results[0].Matches {
		if m.Location == LocFieldValue && m.FieldName == "username" {
			found = true
		}
	}
	if !found {
		t.Error("expected a field_value match on username")
	}
}

func TestSensitiveFieldExclusion(t *testing.T) {
	c := testCredential("Test Account", "login")
	c.SetField("password", models.PasswordField("secretpass"))
	creds := index(c)

	if got := Search(creds, TextQuery("secretpass")); len(got) != 0 {
		t.Errorf("sensitive excluded by default, got %d results", len(got))
	}
	if got := Search(creds, TextQuery("secretpass").WithSensitive(true)); len(got) != 1 {
		t.Errorf("sensitive included, got %d results", len(got))
	}
}

func TestFilters(t *testing.T) {
	fav := testCredential("Favorite Account", "login")
	fav.Favorite = true
	note := testCredential("A Note", "note")
	note.FolderPath = "Personal/Notes"
	plain := testCredential("Regular Account", "login")
	creds := index(fav, note, plain)

	if got := Search(creds, NewQuery().WithFavoritesOnly(true)); len(got) != 1 || got[0].Credential.Title != "Favorite Account" {
		t.Error("favorites filter failed")
	}
	if got := Search(creds, NewQuery().WithType("note")); len(got) != 1 || got[0].Credential.Title != "A Note" {
		t.Error("type filter failed")
	}
	if got := Search(creds, NewQuery().InFolder("Personal")); len(got) != 1 {
		t.Error("folder filter failed")
	}
}

func TestScoringOrder(t *testing.T) {
	exact := testCredential("test", "login")
	partial := testCredential("test account", "login")
	fieldOnly := testCredential("Account", "login")
	fieldOnly.SetField("username", models.UsernameField("test"))
	creds := index(exact, partial, fieldOnly)

	results := Search(creds, TextQuery("test"))
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Fatal("results not sorted by score")
		}
	}
	if results[0].Credential.Title != "test" {
		t.Errorf("best result = %q, want exact title match", results[0].Credential.Title)
	}
}

func TestSimilarTitles(t *testing.T) {
	creds := index(
		testCredential("Gmail Account", "login"),
		testCredential("Gmail Backup", "login"),
		testCredential("Yahoo Mail", "login"),
	)

	results := FindSimilarTitles(creds, "Gmail", 0.3)
	if len(results) < 2 {
		t.Fatalf("similar results = %d, want >= 2", len(results))
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by similarity")
	}

	same := FindSimilarTitles(creds, "gmail account", 0.99)
	if len(same) != 1 || same[0].Score != 1 {
		t.Error("case-insensitive identical titles should score 1")
	}
}

func TestExtractMetadata(t *testing.T) {
	a := testCredential("Work Email", "login")
	a.AddTag("work")
	a.AddTag("email")
	a.FolderPath = "Work/Email"
	b := testCredential("Bank Account", "banking")
	b.AddTag("finance")
	b.FolderPath = "Personal/Finance"
	creds := index(a, b)

	tags := ExtractAllTags(creds)
	want := []string{"email", "finance", "work"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v", tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags = %v, want %v", tags, want)
		}
	}

	types := ExtractTypes(creds)
	if len(types) != 2 || types[0] != "banking" || types[1] != "login" {
		t.Errorf("types = %v", types)
	}

	paths := ExtractFolderPaths(creds)
	wantPaths := map[string]bool{"Work": true, "Work/Email": true, "Personal": true, "Personal/Finance": true}
	if len(paths) != len(wantPaths) {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if !wantPaths[p] {
			t.Errorf("unexpected path %q", p)
		}
	}
}

func TestFilterOnlyBaseScore(t *testing.T) {
	fav := testCredential("X", "login")
	fav.Favorite = true
	creds := index(fav)

	results := Search(creds, NewQuery())
	if len(results) != 1 {
		t.Fatal("filter-only search should match everything")
	}
	// Base 1.0 plus favorite and recent-access bonuses.
	if results[0].Score < 1.15 || results[0].Score > 1.16 {
		t.Errorf("score = %f, want 1.15", results[0].Score)
	}
}
