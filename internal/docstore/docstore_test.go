package docstore

import (
	"os"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return db
}

func TestCollection_SequentialCIDs(t *testing.T) {
	coll := testDB(t).Collection("things")

	for want := int64(0); want < 3; want++ {
		cid := coll.Insert(Document{"n": want})
		if cid != want {
			t.Errorf("Insert() cid = %d, want %d", cid, want)
		}
	}

	if coll.Len() != 3 {
		t.Errorf("Len() = %d, want 3", coll.Len())
	}
}

func TestCollection_NoCIDReuseAfterRemove(t *testing.T) {
	coll := testDB(t).Collection("things")

	coll.Insert(Document{"n": 0})
	cid := coll.Insert(Document{"n": 1})

	if !coll.Remove(cid) {
		t.Fatal("Remove() = false, want true")
	}
	if coll.Remove(cid) {
		t.Error("second Remove() = true, want false")
	}

	next := coll.Insert(Document{"n": 2})
	if next != cid+1 {
		t.Errorf("Insert() after remove cid = %d, want %d", next, cid+1)
	}
}

func TestCollection_Replace(t *testing.T) {
	coll := testDB(t).Collection("things")

	cid := coll.Insert(Document{"n": 1})
	if !coll.Replace(cid, Document{"n": 2}) {
		t.Fatal("Replace() = false, want true")
	}

	doc, ok := coll.FindOne("n", 2)
	if !ok {
		t.Fatal("FindOne() ok = false after replace")
	}
	if got, _ := doc.CID(); got != cid {
		t.Errorf("replaced doc cid = %d, want %d", got, cid)
	}

	if coll.Replace(999, Document{"n": 3}) {
		t.Error("Replace(999) = true for missing cid")
	}
}

func TestCollection_SaveAndReload(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	coll := db.Collection("things")
	coll.Insert(Document{"name": "first"})
	cid := coll.Insert(Document{"name": "second"})
	coll.Remove(cid)

	if err := coll.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Fresh handle simulates a restart
	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	reloaded := db2.Collection("things")

	if reloaded.Len() != 1 {
		t.Fatalf("reloaded Len() = %d, want 1", reloaded.Len())
	}

	// The high-water mark survives the restart; the removed cid is
	// never handed out again.
	next := reloaded.Insert(Document{"name": "third"})
	if next != cid+1 {
		t.Errorf("Insert() after reload cid = %d, want %d", next, cid+1)
	}
}

func TestCollection_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "things.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	coll := db.Collection("things")

	if coll.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for corrupt file", coll.Len())
	}
	if cid := coll.Insert(Document{"n": 1}); cid != 0 {
		t.Errorf("Insert() cid = %d, want 0", cid)
	}
}

func TestCollection_UnsavedMutationsNotPersisted(t *testing.T) {
	dir := t.TempDir()

	db, _ := Open(dir)
	coll := db.Collection("things")
	coll.Insert(Document{"n": 1})
	if err := coll.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	coll.Insert(Document{"n": 2}) // not saved

	db2, _ := Open(dir)
	if got := db2.Collection("things").Len(); got != 1 {
		t.Errorf("reloaded Len() = %d, want 1 (unsaved insert must not persist)", got)
	}
}
