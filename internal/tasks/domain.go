// Package tasks tracks the accounting office's to-dos for each company.
package tasks

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the task does not exist in the company.
	ErrNotFound = errors.New("tasks: not found")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("tasks: invalid status")
)

// Status is the task workflow state.
type Status string

const (
	StatusPendente    Status = "pendente"
	StatusEmAndamento Status = "em_andamento"
	StatusConcluida   Status = "concluida"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendente, StatusEmAndamento, StatusConcluida:
		return true
	}
	return false
}

// Open reports whether the task still needs work.
func (s Status) Open() bool {
	return s != StatusConcluida
}

const dateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is a unit of work for one company.
type Task struct {
	ID            int64      `json:"id"`
	CompanyID     int64      `json:"company_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	DueDate       *Date      `json:"due_date,omitempty"`
	AssigneeEmail string     `json:"assignee_email,omitempty"`
	CreatedBy     int64      `json:"created_by,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Overdue reports whether the task is open and past its due date on today.
func (t Task) Overdue(today Date) bool {
	return t.Status.Open() && t.DueDate != nil && t.DueDate.Before(today.Time)
}

// ListFilter narrows task listings of one company.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// TaskRequest is the payload of create and update.
type TaskRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=4000"`
	Status        Status `json:"status" validate:"omitempty,oneof=pendente em_andamento concluida"`
	DueDate       *Date  `json:"due_date"`
	AssigneeEmail string `json:"assignee_email" validate:"omitempty,email,max=254"`
}

// Stats summarizes the open work of a company.
type Stats struct {
	Open    int `json:"open"`
	Overdue int `json:"overdue"`
}

// Reminder is an open task due soon, joined with its company name.
type Reminder struct {
	Task        Task   `json:"task"`
	CompanyName string `json:"company_name"`
}
