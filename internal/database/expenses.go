package database

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Expense categories. The set is fixed; aggregation buckets mirror it.
const (
	ExpenseCategoryEquipment      = "equipment"
	ExpenseCategoryCrew           = "crew"
	ExpenseCategoryLocation       = "location"
	ExpenseCategoryPostProduction = "post-production"
	ExpenseCategoryOther          = "other"
)

// ExpenseCategories lists the five valid categories in display order.
var ExpenseCategories = []string{
	ExpenseCategoryEquipment,
	ExpenseCategoryCrew,
	ExpenseCategoryLocation,
	ExpenseCategoryPostProduction,
	ExpenseCategoryOther,
}

// Expense is one spend entry against a project budget.
type Expense struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	ExpenseDate string    `json:"expense_date"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExpenseCreate is the insert payload for an expense.
type ExpenseCreate struct {
	ProjectID   string  `json:"project_id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	ExpenseDate string  `json:"expense_date"`
	CreatedBy   string  `json:"created_by"`
}

// ExpenseUpdate carries partial expense changes.
type ExpenseUpdate struct {
	Category    *string  `json:"category,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Description *string  `json:"description,omitempty"`
	ExpenseDate *string  `json:"expense_date,omitempty"`
}

func (c ExpenseCreate) validate() error {
	if err := ValidateID("project_id", c.ProjectID); err != nil {
		return err
	}
	if err := ValidateEnum("category", c.Category, ExpenseCategories); err != nil {
		return err
	}
	if c.Amount < 0 {
		return fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}
	if c.ExpenseDate == "" {
		return fmt.Errorf("%w: expense_date is required", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", c.ExpenseDate); err != nil {
		return fmt.Errorf("%w: expense_date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return ValidateID("created_by", c.CreatedBy)
}

// CreateExpense inserts an expense.
func (r *Repository) CreateExpense(ctx context.Context, create ExpenseCreate) (*Expense, error) {
	if err := create.validate(); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodPost, "expenses", create, "")
	if err != nil {
		return nil, err
	}
	return decodeOne[Expense](data, "expenses")
}

// GetExpense fetches one expense.
func (r *Repository) GetExpense(ctx context.Context, id string) (*Expense, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	data, err := r.Request(ctx, http.MethodGet, "expenses", nil, "id=eq."+id+"&limit=1")
	if err != nil {
		return nil, err
	}
	return decodeOne[Expense](data, "expenses")
}

// ListExpensesByProject returns a project's expenses, newest spend first.
func (r *Repository) ListExpensesByProject(ctx context.Context, projectID string) ([]Expense, error) {
	if err := ValidateID("project_id", projectID); err != nil {
		return nil, err
	}
	query := "project_id=eq." + projectID + "&order=" + url.QueryEscape("expense_date.desc")
	data, err := r.Request(ctx, http.MethodGet, "expenses", nil, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[Expense](data, "expenses")
}

// ListExpensesForProjects returns expenses across the given projects.
// An empty project set short-circuits without a query.
func (r *Repository) ListExpensesForProjects(ctx context.Context, projectIDs []string) ([]Expense, error) {
	if len(projectIDs) == 0 {
		return []Expense{}, nil
	}
	data, err := r.Request(ctx, http.MethodGet, "expenses", nil, "project_id="+inList(projectIDs))
	if err != nil {
		return nil, err
	}
	return decodeRows[Expense](data, "expenses")
}

// UpdateExpense applies a partial update and returns the updated row.
func (r *Repository) UpdateExpense(ctx context.Context, id string, update ExpenseUpdate) (*Expense, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}
	if update.Category != nil {
		if err := ValidateEnum("category", *update.Category, ExpenseCategories); err != nil {
			return nil, err
		}
	}
	if update.Amount != nil && *update.Amount < 0 {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}
	data, err := r.Request(ctx, http.MethodPatch, "expenses", update, "id=eq."+id)
	if err != nil {
		return nil, err
	}
	return decodeOne[Expense](data, "expenses")
}

// DeleteExpense removes an expense.
func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	if err := ValidateID("id", id); err != nil {
		return err
	}
	data, err := r.Request(ctx, http.MethodDelete, "expenses", nil, "id=eq."+id)
	if err != nil {
		return err
	}
	if _, err := decodeOne[Expense](data, "expenses"); err != nil {
		return err
	}
	return nil
}
