package repo

import (
	"errors"
	"testing"

	"coffre/filemap"
	"coffre/models"
)

func testCredential(title string) *models.CredentialRecord {
	c := models.NewCredential(title, "login")
	c.SetField("username", models.UsernameField("testuser"))
	c.SetField("password", models.PasswordField("testpass"))
	return c
}

func initialized(t *testing.T) *Repository {
	t.Helper()
	r := New()
	if err := r.Initialize(); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestLifecycle(t *testing.T) {
	r := New()

	if r.Initialized() {
		t.Error("fresh repository should not be initialized")
	}
	if err := r.Add(testCredential("X")); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("add before init = %v, want ErrNotInitialized", err)
	}

	if err := r.Initialize(); err != nil {
		t.Fatal(err)
	}
	if !r.Initialized() || !r.Modified() {
		t.Error("initialize should mark ready and dirty")
	}

	if err := r.Initialize(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("double init = %v, want ErrAlreadyInitialized", err)
	}
}

func TestNotInitializedEverywhere(t *testing.T) {
	r := New()

	if _, err := r.Get("x"); !errors.Is(err, ErrNotInitialized) {
		t.Error("Get")
	}
	if _, err := r.Peek("x"); !errors.Is(err, ErrNotInitialized) {
		t.Error("Peek")
	}
	if err := r.Update(testCredential("X")); !errors.Is(err, ErrNotInitialized) {
		t.Error("Update")
	}
	if _, err := r.Delete("x"); !errors.Is(err, ErrNotInitialized) {
		t.Error("Delete")
	}
	if _, err := r.List(); !errors.Is(err, ErrNotInitialized) {
		t.Error("List")
	}
	if _, err := r.SerializeFiles(); !errors.Is(err, ErrNotInitialized) {
		t.Error("SerializeFiles")
	}
	if _, err := r.GetStats(); !errors.Is(err, ErrNotInitialized) {
		t.Error("GetStats")
	}
}

func TestCRUD(t *testing.T) {
	r := initialized(t)

	cred := testCredential("Test Credential")
	if err := r.Add(cred); err != nil {
		t.Fatal(err)
	}
	id := cred.ID

	got, err := r.Peek(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Test Credential" {
		t.Errorf("title = %q", got.Title)
	}

	got.Title = "Updated Credential"
	if err := r.Update(got); err != nil {
		t.Fatal(err)
	}

	again, _ := r.Peek(id)
	if again.Title != "Updated Credential" {
		t.Errorf("after update title = %q", again.Title)
	}
	if again.CreatedAt != cred.CreatedAt {
		t.Error("update must preserve created_at")
	}

	removed, err := r.Delete(id)
	if err != nil {
		t.Fatal(err)
	}
	if removed.Title != "Updated Credential" {
		t.Error("delete returns the removed record")
	}

	if _, err := r.Peek(id); err == nil {
		t.Error("deleted credential still present")
	}
	var nf NotFoundError
	if _, err := r.Delete(id); !errors.As(err, &nf) {
		t.Errorf("double delete = %v, want NotFoundError", err)
	}
}

func TestDuplicateID(t *testing.T) {
	r := initialized(t)

	first := testCredential("First")
	if err := r.Add(first); err != nil {
		t.Fatal(err)
	}

	second := testCredential("Second")
	second.ID = first.ID

	var dup DuplicateIDError
	if err := r.Add(second); !errors.As(err, &dup) {
		t.Errorf("duplicate add = %v, want DuplicateIDError", err)
	}

	// The original must be untouched.
	got, _ := r.Peek(first.ID)
	if got.Title != "First" {
		t.Error("duplicate add clobbered existing record")
	}
}

func TestValidationGating(t *testing.T) {
	r := initialized(t)
	if err := r.Add(testCredential("Keep")); err != nil {
		t.Fatal(err)
	}
	before, err := r.SerializeFiles()
	if err != nil {
		t.Fatal(err)
	}

	bad := testCredential("")
	var verr ValidationError
	if err := r.Add(bad); !errors.As(err, &verr) {
		t.Errorf("invalid add = %v, want ValidationError", err)
	}

	after, err := r.SerializeFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Error("failed add changed repository state")
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			t.Errorf("failed add removed %q", path)
		}
	}
}

func TestGetStampsAccessPeekDoesNot(t *testing.T) {
	r := initialized(t)
	cred := testCredential("X")
	if err := r.Add(cred); err != nil {
		t.Fatal(err)
	}
	r.MarkSaved()

	if _, err := r.Peek(cred.ID); err != nil {
		t.Fatal(err)
	}
	if r.Modified() {
		t.Error("Peek must not mark modified")
	}

	if _, err := r.Get(cred.ID); err != nil {
		t.Fatal(err)
	}
	if !r.Modified() {
		t.Error("Get stamps access time and marks modified")
	}
}

func TestDirtyFlagDiscipline(t *testing.T) {
	r := initialized(t)
	if err := r.Add(testCredential("X")); err != nil {
		t.Fatal(err)
	}

	r.MarkSaved()
	if r.Modified() {
		t.Error("MarkSaved should clear the flag")
	}

	if _, err := r.SerializeFiles(); err != nil {
		t.Fatal(err)
	}
	if r.Modified() {
		t.Error("SerializeFiles alone must not set or clear the flag")
	}

	if err := r.Add(testCredential("Y")); err != nil {
		t.Fatal(err)
	}
	if !r.Modified() {
		t.Error("mutation should set the flag again")
	}
}

func TestRoundTrip(t *testing.T) {
	r := initialized(t)

	a := testCredential("Gmail Account")
	a.AddTag("mail")
	a.Favorite = true
	b := testCredential("Bank Login")
	b.Notes = "ask branch for reset"
	if err := r.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(b); err != nil {
		t.Fatal(err)
	}

	files, err := r.SerializeFiles()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := files[filemap.MetadataFile]; !ok {
		t.Fatal("metadata.yml missing from file map")
	}
	if len(files) != 3 {
		t.Fatalf("file map entries = %d, want 3", len(files))
	}

	loaded := New()
	repaired, err := loaded.LoadFiles(files)
	if err != nil {
		t.Fatal(err)
	}
	if repaired != 0 {
		t.Errorf("repaired = %d, want 0", repaired)
	}
	if loaded.Modified() {
		t.Error("freshly loaded repository should be clean")
	}

	stats, err := loaded.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.CredentialCount != 2 || stats.Metadata.CredentialCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", stats.CredentialCount, stats.Metadata.CredentialCount)
	}

	for _, orig := range []*models.CredentialRecord{a, b} {
		got, err := loaded.Peek(orig.ID)
		if err != nil {
			t.Fatalf("%s: %v", orig.Title, err)
		}
		if got.Title != orig.Title || got.Favorite != orig.Favorite || got.Notes != orig.Notes {
			t.Errorf("%s: round trip lost data", orig.Title)
		}
		if len(got.Fields) != len(orig.Fields) {
			t.Errorf("%s: field count differs", orig.Title)
		}
		for name, f := range orig.Fields {
			lf, ok := got.Field(name)
			if !ok || lf.Value != f.Value || lf.Sensitive != f.Sensitive {
				t.Errorf("%s: field %q differs", orig.Title, name)
			}
		}
		if got.CreatedAt != orig.CreatedAt || got.UpdatedAt != orig.UpdatedAt {
			t.Errorf("%s: timestamps differ", orig.Title)
		}
	}
}

func TestLoadCountMismatch(t *testing.T) {
	r := initialized(t)
	if err := r.Add(testCredential("X")); err != nil {
		t.Fatal(err)
	}
	files, err := r.SerializeFiles()
	if err != nil {
		t.Fatal(err)
	}

	meta := filemap.NewMetadata()
	meta.CredentialCount = 5
	files[filemap.MetadataFile], _ = filemap.MarshalMetadata(meta)

	var serr StructureError
	if _, err := New().LoadFiles(files); !errors.As(err, &serr) {
		t.Errorf("count mismatch = %v, want StructureError", err)
	}
}

func TestLoadMissingMetadata(t *testing.T) {
	var serr StructureError
	if _, err := New().LoadFiles(filemap.FileMap{}); !errors.As(err, &serr) {
		t.Errorf("missing metadata = %v, want StructureError", err)
	}
}

func TestLoadRepairsEmptyIDs(t *testing.T) {
	broken := testCredential("Legacy Entry")
	broken.ID = ""
	recBytes, err := filemap.MarshalCredential(broken)
	if err != nil {
		t.Fatal(err)
	}

	meta := filemap.NewMetadata()
	meta.CredentialCount = 1
	metaBytes, _ := filemap.MarshalMetadata(meta)

	files := filemap.FileMap{
		filemap.MetadataFile:       metaBytes,
		"credentials/x/record.yml": recBytes,
	}

	r := New()
	repaired, err := r.LoadFiles(files)
	if err != nil {
		t.Fatal(err)
	}
	if repaired != 1 {
		t.Errorf("repaired = %d, want 1", repaired)
	}

	list, _ := r.List()
	if len(list) != 1 || len(list[0].ID) == 0 {
		t.Error("repaired record should carry a fresh id")
	}
	if !r.Modified() {
		t.Error("repair pass leaves unsaved changes")
	}
}

func TestUpdateTitleFallback(t *testing.T) {
	r := initialized(t)
	if err := r.Add(testCredential("Existing")); err != nil {
		t.Fatal(err)
	}

	// An empty-id update only matches entries whose stored id is also
	// empty. With a healthy repository it always misses.
	orphan := testCredential("Existing")
	orphan.ID = ""
	var nf NotFoundError
	if err := r.Update(orphan); !errors.As(err, &nf) {
		t.Errorf("fallback against healthy store = %v, want NotFoundError", err)
	}

	// An update with an unknown non-empty id also misses.
	ghost := testCredential("Ghost")
	if err := r.Update(ghost); !errors.As(err, &nf) {
		t.Errorf("unknown id update = %v, want NotFoundError", err)
	}
}

func TestSummariesAndFilters(t *testing.T) {
	r := initialized(t)

	a := testCredential("Login 1")
	a.AddTag("work")
	a.Favorite = true
	b := testCredential("Note 1")
	b.Type = "note"
	b.AddTag("personal")
	c := testCredential("Login 2")
	c.AddTag("work")

	for _, cred := range []*models.CredentialRecord{a, b, c} {
		if err := r.Add(cred); err != nil {
			t.Fatal(err)
		}
	}

	sums, err := r.Summaries()
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 3 {
		t.Errorf("summaries = %d, want 3", len(sums))
	}

	logins, _ := r.ByType("login")
	if len(logins) != 2 {
		t.Errorf("logins = %d, want 2", len(logins))
	}
	work, _ := r.ByTag("work")
	if len(work) != 2 {
		t.Errorf("work tagged = %d, want 2", len(work))
	}
	favs, _ := r.Favorites()
	if len(favs) != 1 {
		t.Errorf("favorites = %d, want 1", len(favs))
	}
}

func TestImport(t *testing.T) {
	src := initialized(t)
	if err := src.Add(testCredential("One")); err != nil {
		t.Fatal(err)
	}
	if err := src.Add(testCredential("Two")); err != nil {
		t.Fatal(err)
	}
	exported, err := src.Export()
	if err != nil {
		t.Fatal(err)
	}

	dst := initialized(t)
	n, err := dst.Import(exported)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported = %d, want 2", n)
	}

	// Importing again collides on every id; Import recovers by re-iding.
	n, err = dst.Import(exported)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("re-imported = %d, want 2", n)
	}
	stats, _ := dst.GetStats()
	if stats.CredentialCount != 4 {
		t.Errorf("count = %d, want 4", stats.CredentialCount)
	}
}

func TestClear(t *testing.T) {
	r := initialized(t)
	if err := r.Add(testCredential("X")); err != nil {
		t.Fatal(err)
	}
	if err := r.Clear(); err != nil {
		t.Fatal(err)
	}
	stats, _ := r.GetStats()
	if stats.CredentialCount != 0 {
		t.Error("clear should empty the repository")
	}
	if !r.Initialized() {
		t.Error("clear keeps the repository initialized")
	}
}
