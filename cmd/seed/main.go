// Command seed provisions demo accounts and a sample production so a fresh
// local stack has something to look at. It is idempotent on users: accounts
// that already exist are skipped, but the sample project is created on every
// run, so rerun against a clean database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/backlot-app/backlot/internal/config"
	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/supabase"
)

type seedUser struct {
	email      string
	password   string
	fullName   string
	role       string
	department string
}

var demoUsers = []seedUser{
	{"admin@backlot.local", "backlot-admin", "Ada Calloway", database.RoleAdmin, "Production Office"},
	{"head@backlot.local", "backlot-head", "Hector Ibarra", database.RoleDepartmentHead, "Camera"},
	{"crew@backlot.local", "backlot-crew", "Casey Mercer", database.RoleCrew, "Grip"},
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the config file")
		envFile    = flag.String("env", ".env", "path to the env file with Supabase keys")
	)
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	supa, err := supabase.New(supabase.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
		Retry:      supabase.DefaultRetryConfig(),
	})
	if err != nil {
		log.Fatalf("supabase client: %v", err)
	}
	repo := database.NewRepository(supa)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ids := make(map[string]string, len(demoUsers))
	for _, u := range demoUsers {
		id, err := provisionUser(ctx, supa, repo, u)
		if err != nil {
			log.Fatalf("seed user %s: %v", u.email, err)
		}
		ids[u.role] = id
	}

	if err := seedProject(ctx, repo, ids); err != nil {
		log.Fatalf("seed project: %v", err)
	}

	fmt.Println("seeded demo users:")
	for _, u := range demoUsers {
		fmt.Printf("  %-22s %s (%s)\n", u.email, u.password, u.role)
	}
}

func provisionUser(ctx context.Context, supa *supabase.Client, repo *database.Repository, u seedUser) (string, error) {
	user, err := supa.Auth().AdminCreateUser(ctx, supabase.AdminCreateUserRequest{
		Email:        u.email,
		Password:     u.password,
		EmailConfirm: true,
		UserMetadata: map[string]any{"full_name": u.fullName},
	})
	if err != nil {
		// GoTrue reports duplicates as 422; treat an existing account
		// as already seeded rather than failing the run.
		if strings.Contains(err.Error(), "already") {
			log.Printf("user %s already exists, skipping", u.email)
			return "", nil
		}
		return "", err
	}

	// The signup trigger creates the profile as crew; promote it.
	_, err = repo.UpdateProfile(ctx, user.ID, database.ProfileUpdate{
		Role:       &u.role,
		Department: &u.department,
	})
	if err != nil {
		return "", fmt.Errorf("promote profile: %w", err)
	}
	return user.ID, nil
}

func seedProject(ctx context.Context, repo *database.Repository, ids map[string]string) error {
	adminID := ids[database.RoleAdmin]
	if adminID == "" {
		log.Println("admin already existed, skipping sample project")
		return nil
	}

	budget := 250000.0
	start := time.Now().Format("2006-01-02")
	end := time.Now().AddDate(0, 3, 0).Format("2006-01-02")
	project, err := repo.CreateProject(ctx, database.ProjectCreate{
		Title:       "Night Shoot",
		Description: "Three-month feature shoot used as demo data.",
		Budget:      &budget,
		Status:      database.ProjectStatusPreProduction,
		CreatedBy:   adminID,
		StartDate:   &start,
		EndDate:     &end,
	})
	if err != nil {
		return err
	}

	for role, label := range map[string]string{
		database.RoleDepartmentHead: "Director of Photography",
		database.RoleCrew:           "Key Grip",
	} {
		id := ids[role]
		if id == "" {
			continue
		}
		if _, err := repo.AddProjectMember(ctx, project.ID, id, label); err != nil {
			return fmt.Errorf("add member: %w", err)
		}
	}

	due := time.Now().AddDate(0, 0, 14).Format("2006-01-02")
	crewID := ids[database.RoleCrew]
	task := database.TaskCreate{
		ProjectID:   project.ID,
		Title:       "Scout warehouse location",
		Description: "Confirm power access and parking for the night exterior.",
		CreatedBy:   adminID,
		Status:      database.TaskStatusTodo,
		Priority:    database.TaskPriorityHigh,
		DueDate:     &due,
	}
	if crewID != "" {
		task.AssignedTo = &crewID
	}
	if _, err := repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if _, err := repo.CreateExpense(ctx, database.ExpenseCreate{
		ProjectID:   project.ID,
		Description: "Camera package rental deposit",
		Amount:      4800,
		Category:    database.ExpenseCategoryEquipment,
		ExpenseDate: start,
		CreatedBy:   adminID,
	}); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	log.Printf("created sample project %s (%s)", project.Title, project.ID)
	return nil
}
