package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/workspace"
)

func TestCreateWorkspaceInsertsOwnerInOneTx(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("insert into workspaces").
		WithArgs("ws1", "Platform", "platform-ab12", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("insert into members").
		WithArgs("u1", "ws1", "OWNER").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	ws := &workspace.Workspace{ID: "ws1", Name: "Platform", Slug: "platform-ab12", OwnerID: "u1"}
	owner := &workspace.Member{UserID: "u1", WorkspaceID: "ws1", Role: auth.RoleOwner}
	if err := store.CreateWorkspace(context.Background(), ws, owner); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	if !ws.CreatedAt.Equal(now) || !owner.CreatedAt.Equal(now) {
		t.Fatalf("timestamps not populated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWorkspaceRollsBackOnSlugCollision(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("insert into workspaces").
		WithArgs("ws1", "Platform", "platform-ab12", "u1").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	ws := &workspace.Workspace{ID: "ws1", Name: "Platform", Slug: "platform-ab12", OwnerID: "u1"}
	owner := &workspace.Member{UserID: "u1", WorkspaceID: "ws1", Role: auth.RoleOwner}
	if err := store.CreateWorkspace(context.Background(), ws, owner); !errors.Is(err, workspace.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetWorkspaceNotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("select id, name, slug, owner_id.*from workspaces").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "owner_id", "created_at", "updated_at"}))

	if _, err := store.GetWorkspace(context.Background(), "missing"); !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListWorkspacesForUserJoinsMemberships(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery("from workspaces w.*join members m").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "owner_id", "created_at", "updated_at"}).
			AddRow("ws1", "Alpha", "alpha-1111", "u1", now, now).
			AddRow("ws2", "Beta", "beta-2222", "u9", now, now))

	list, err := store.ListWorkspacesForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListWorkspacesForUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != "ws1" || list[1].ID != "ws2" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWorkspaceStats(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("select count.*from projects.*count.*from members").
		WithArgs("ws1").
		WillReturnRows(sqlmock.NewRows([]string{"projects", "members"}).AddRow(4, 7))

	stats, err := store.WorkspaceStats(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("WorkspaceStats: %v", err)
	}
	if stats.ProjectsCount != 4 || stats.MembersCount != 7 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindMemberParsesRole(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery("select user_id, workspace_id, role, created_at.*from members").
		WithArgs("u1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "workspace_id", "role", "created_at"}).
			AddRow("u1", "ws1", "ADMIN", now))

	m, err := store.FindMember(context.Background(), "u1", "ws1")
	if err != nil {
		t.Fatalf("FindMember: %v", err)
	}
	if m.Role != auth.RoleAdmin {
		t.Fatalf("unexpected role: %s", m.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindMemberAbsent(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("select user_id, workspace_id, role, created_at.*from members").
		WithArgs("stranger", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "workspace_id", "role", "created_at"}))

	if _, err := store.FindMember(context.Background(), "stranger", "ws1"); !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateProjectMapsConstraints(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("insert into projects").
		WithArgs("p1", "ws1", "API", "", "API", "u1").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectQuery("insert into projects").
		WithArgs("p2", "gone", "API", "", "API", "u1").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	err := store.CreateProject(context.Background(), &workspace.Project{
		ID: "p1", WorkspaceID: "ws1", Name: "API", Key: "API", CreatorID: "u1",
	})
	if !errors.Is(err, workspace.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
	}

	err = store.CreateProject(context.Background(), &workspace.Project{
		ID: "p2", WorkspaceID: "gone", Name: "API", Key: "API", CreatorID: "u1",
	})
	if !errors.Is(err, workspace.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing workspace, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateProjectNotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("update projects").
		WithArgs("gone", "New", "desc").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateProject(context.Background(), &workspace.Project{ID: "gone", Name: "New", Description: "desc"})
	if !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMigrationsUsesEmbeddedFS(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	_ = mock

	orig := gooseUpContext
	called := false
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		if dir != "." {
			t.Fatalf("unexpected dir: %s", dir)
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if !called {
		t.Fatalf("goose.UpContext was not invoked")
	}
}
