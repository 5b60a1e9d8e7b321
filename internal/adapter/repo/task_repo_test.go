package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"mediaforge/internal/domain"
)

// scriptRow replays a fixed column tuple into Scan destinations.
type scriptRow struct {
	vals []any
	err  error
}

func (r scriptRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.vals))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.vals[i].(string)
		case *[]byte:
			if r.vals[i] == nil {
				*p = nil
			} else {
				*p = r.vals[i].([]byte)
			}
		case *int:
			*p = r.vals[i].(int)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type scriptRows struct {
	rows []scriptRow
	idx  int
}

func (r *scriptRows) Close()                                       {}
func (r *scriptRows) Err() error                                   { return nil }
func (r *scriptRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *scriptRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *scriptRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}
func (r *scriptRows) Scan(dest ...any) error { return r.rows[r.idx-1].Scan(dest...) }
func (r *scriptRows) Values() ([]any, error) { return nil, errors.New("not implemented") }
func (r *scriptRows) RawValues() [][]byte    { return nil }
func (r *scriptRows) Conn() *pgx.Conn        { return nil }

// scriptExecutor records the last query and args and replays scripted rows.
type scriptExecutor struct {
	row      scriptRow
	rows     []scriptRow
	queryErr error

	gotQuery string
	gotArgs  []any
}

func (s *scriptExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.gotQuery = query
	s.gotArgs = args
	return pgconn.CommandTag{}, nil
}

func (s *scriptExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.gotQuery = query
	s.gotArgs = args
	return s.row
}

func (s *scriptExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.gotQuery = query
	s.gotArgs = args
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &scriptRows{rows: s.rows}, nil
}

// taskRowVals builds a full column tuple in the select-list order.
func taskRowVals(taskID, status string, assetsJSON, metaJSON []byte) []any {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []any{
		taskID,
		"a red fox",
		"text-to-image",
		"user-1",
		"fp-1",
		status,
		assetsJSON,
		"",
		2,
		metaJSON,
		now,
		now,
	}
}

func TestCreateDefaultsStatusToPending(t *testing.T) {
	exec := &scriptExecutor{row: scriptRow{vals: taskRowVals("t-1", "pending", nil, nil)}}
	repo := NewTaskRepository(exec)

	task, err := repo.Create(context.Background(), &domain.GenerationTask{
		TaskID: "t-1",
		Prompt: "a red fox",
		Mode:   domain.TaskModeTextToImage,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Status != domain.TaskStatusPending {
		t.Fatalf("status = %q", task.Status)
	}
	if len(exec.gotArgs) != 7 {
		t.Fatalf("args = %d, want 7", len(exec.gotArgs))
	}
	if exec.gotArgs[5] != "pending" {
		t.Fatalf("status arg = %v, want pending", exec.gotArgs[5])
	}
}

func TestCreateEncodesMetadata(t *testing.T) {
	exec := &scriptExecutor{row: scriptRow{vals: taskRowVals("t-1", "pending", nil, []byte(`{"locale":"en"}`))}}
	repo := NewTaskRepository(exec)

	task, err := repo.Create(context.Background(), &domain.GenerationTask{
		TaskID:   "t-1",
		Prompt:   "a red fox",
		Mode:     domain.TaskModeTextToImage,
		Metadata: map[string]any{"locale": "en"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	encoded, ok := exec.gotArgs[6].([]byte)
	if !ok || string(encoded) != `{"locale":"en"}` {
		t.Fatalf("metadata arg = %v", exec.gotArgs[6])
	}
	if task.Metadata["locale"] != "en" {
		t.Fatalf("metadata = %v", task.Metadata)
	}
}

func TestUpdateMissingRowReturnsNil(t *testing.T) {
	exec := &scriptExecutor{row: scriptRow{err: pgx.ErrNoRows}}
	repo := NewTaskRepository(exec)

	status := domain.TaskStatusProcessing
	task, err := repo.Update(context.Background(), "gone", domain.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if task != nil {
		t.Fatalf("task = %+v, want nil", task)
	}
}

func TestUpdatePassesPatchFields(t *testing.T) {
	assetsJSON := []byte(`[{"id":"a1","mime_type":"image/png","storage_key":"k","storage_url":"u"}]`)
	exec := &scriptExecutor{row: scriptRow{vals: taskRowVals("t-1", "completed", assetsJSON, nil)}}
	repo := NewTaskRepository(exec)

	status := domain.TaskStatusCompleted
	task, err := repo.Update(context.Background(), "t-1", domain.TaskPatch{
		Status:         &status,
		ResultAssets:   []domain.Asset{{ID: "a1", MimeType: "image/png", StorageKey: "k", StorageURL: "u"}},
		RetryIncrement: 3,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(exec.gotArgs) != 6 {
		t.Fatalf("args = %d, want 6", len(exec.gotArgs))
	}
	if got, ok := exec.gotArgs[1].(*string); !ok || *got != "completed" {
		t.Fatalf("status arg = %v", exec.gotArgs[1])
	}
	if exec.gotArgs[5] != 3 {
		t.Fatalf("retry increment arg = %v, want 3", exec.gotArgs[5])
	}
	if len(task.ResultAssets) != 1 || task.ResultAssets[0].StorageKey != "k" {
		t.Fatalf("assets = %v", task.ResultAssets)
	}
}

func TestUpdateNilFieldsStayNil(t *testing.T) {
	exec := &scriptExecutor{row: scriptRow{vals: taskRowVals("t-1", "processing", nil, nil)}}
	repo := NewTaskRepository(exec)

	if _, err := repo.Update(context.Background(), "t-1", domain.TaskPatch{RetryIncrement: 1}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, ok := exec.gotArgs[1].(*string); !ok || got != nil {
		t.Fatalf("status arg = %v, want nil pointer", exec.gotArgs[1])
	}
	if got, ok := exec.gotArgs[2].([]byte); !ok || got != nil {
		t.Fatalf("assets arg = %v, want nil", exec.gotArgs[2])
	}
}

func TestGetByTaskIDNotFound(t *testing.T) {
	exec := &scriptExecutor{row: scriptRow{err: pgx.ErrNoRows}}
	repo := NewTaskRepository(exec)

	if _, err := repo.GetByTaskID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByTaskIDDecodesJSON(t *testing.T) {
	assetsJSON := []byte(`[{"id":"a1","mime_type":"video/mp4","source_url":"https://cdn/x.mp4","storage_key":"k1","storage_url":"u1"}]`)
	metaJSON := []byte(`{"lastError":"timeout"}`)
	exec := &scriptExecutor{row: scriptRow{vals: taskRowVals("t-1", "processing", assetsJSON, metaJSON)}}
	repo := NewTaskRepository(exec)

	task, err := repo.GetByTaskID(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if task.Status != domain.TaskStatusProcessing || task.RetryCount != 2 {
		t.Fatalf("task = %+v", task)
	}
	if len(task.ResultAssets) != 1 || task.ResultAssets[0].MimeType != "video/mp4" {
		t.Fatalf("assets = %v", task.ResultAssets)
	}
	if task.Metadata["lastError"] != "timeout" {
		t.Fatalf("metadata = %v", task.Metadata)
	}
}

func TestListPendingCollectsRows(t *testing.T) {
	exec := &scriptExecutor{rows: []scriptRow{
		{vals: taskRowVals("t-1", "pending", nil, nil)},
		{vals: taskRowVals("t-2", "processing", nil, nil)},
	}}
	repo := NewTaskRepository(exec)

	tasks, err := repo.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(tasks) != 2 || tasks[0].TaskID != "t-1" || tasks[1].TaskID != "t-2" {
		t.Fatalf("tasks = %v", tasks)
	}
	if exec.gotArgs[0] != 10 {
		t.Fatalf("limit arg = %v", exec.gotArgs[0])
	}
}

func TestListByOwnerQueryError(t *testing.T) {
	exec := &scriptExecutor{queryErr: errors.New("db down")}
	repo := NewTaskRepository(exec)

	if _, err := repo.ListByOwner(context.Background(), "user-1", 20, 0); err == nil {
		t.Fatal("expected query error")
	}
}
