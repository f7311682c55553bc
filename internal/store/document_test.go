package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/model"
)

func tempDoc(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "document.json")
}

func TestOpen_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	s := Open(tempDoc(t), zap.NewNop())
	doc := s.Snapshot()
	if doc.SchemaVersion != model.CurrentSchemaVersion {
		t.Fatalf("schemaVersion=%d, want %d", doc.SchemaVersion, model.CurrentSchemaVersion)
	}
	if len(doc.Users) != 0 || len(doc.Plans) != 0 || len(doc.Orders) != 0 {
		t.Fatalf("default document not empty: %+v", doc)
	}
}

func TestOpen_CorruptFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	path := tempDoc(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := Open(path, zap.NewNop())
	doc := s.Snapshot()
	if len(doc.Users) != 0 || doc.SchemaVersion != model.CurrentSchemaVersion {
		t.Fatalf("corrupt file must yield defaults, got %+v", doc)
	}
}

func TestUpdate_PersistAndReload_RoundTrip(t *testing.T) {
	t.Parallel()

	path := tempDoc(t)
	s := Open(path, zap.NewNop())

	err := s.Update(func(doc *model.Document) error {
		doc.Users = append(doc.Users, model.User{ID: 7, Username: "alice", AllowanceMinutes: 90})
		doc.Plans = append(doc.Plans, model.Plan{ID: 8, Name: "hour", Value: 1, Unit: model.UnitHours})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// load(persist(x)) == x
	reloaded := Open(path, zap.NewNop()).Snapshot()
	if !reflect.DeepEqual(s.Snapshot(), reloaded) {
		t.Fatalf("round trip mismatch:\nmem=%+v\ndisk=%+v", s.Snapshot(), reloaded)
	}
	if reloaded.Users[0].Username != "alice" || reloaded.Plans[0].Unit != model.UnitHours {
		t.Fatalf("reloaded document wrong: %+v", reloaded)
	}
}

func TestUpdate_FailedMutationChangesNothing(t *testing.T) {
	t.Parallel()

	path := tempDoc(t)
	s := Open(path, zap.NewNop())
	if err := s.Update(func(doc *model.Document) error {
		doc.Users = append(doc.Users, model.User{ID: 1, Username: "keep"})
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	err := s.Update(func(doc *model.Document) error {
		doc.Users = nil // would be destructive if committed
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want boom", err)
	}

	if got := s.Snapshot(); len(got.Users) != 1 || got.Users[0].Username != "keep" {
		t.Fatalf("failed update leaked into state: %+v", got)
	}
	if got := Open(path, zap.NewNop()).Snapshot(); len(got.Users) != 1 {
		t.Fatalf("failed update leaked onto disk: %+v", got)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	t.Parallel()

	s := Open(tempDoc(t), zap.NewNop())
	if err := s.Update(func(doc *model.Document) error {
		doc.Users = append(doc.Users, model.User{ID: 1, Username: "alice"})
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	snap := s.Snapshot()
	snap.Users[0].Username = "mallory"
	if got := s.Snapshot(); got.Users[0].Username != "alice" {
		t.Fatalf("snapshot aliases store state")
	}
}

func TestReset_RestoresDefaults(t *testing.T) {
	t.Parallel()

	path := tempDoc(t)
	s := Open(path, zap.NewNop())
	if err := s.Update(func(doc *model.Document) error {
		doc.Users = append(doc.Users, model.User{ID: 1, Username: "alice"})
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := s.Snapshot(); len(got.Users) != 0 {
		t.Fatalf("reset kept users: %+v", got)
	}
	if got := Open(path, zap.NewNop()).Snapshot(); len(got.Users) != 0 {
		t.Fatalf("reset not persisted: %+v", got)
	}
}
