package core

import (
	"errors"
	"sort"
	"strconv"
	"sync"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Employee struct {
	ID           int     `json:"id"`
	UserID       int     `json:"userId,omitempty"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Department   string  `json:"department"`
	Position     string  `json:"position"`
	AnnualSalary float64 `json:"annualSalary"`
}

func (e Employee) RowKey() string { return strconv.Itoa(e.ID) }

// MonthlySalary is the annual salary spread over twelve pay periods.
func (e Employee) MonthlySalary() float64 { return e.AnnualSalary / 12 }

// Directory is the read-only employee roster shared by the views.
type Directory struct {
	mu        sync.RWMutex
	employees map[int]Employee
	byUser    map[int]int
}

func NewDirectory(employees []Employee) *Directory {
	d := &Directory{employees: map[int]Employee{}, byUser: map[int]int{}}
	for _, e := range employees {
		d.employees[e.ID] = e
		if e.UserID != 0 {
			d.byUser[e.UserID] = e.ID
		}
	}
	return d
}

func SeedEmployees() []Employee {
	return []Employee{
		{ID: 101, UserID: 2, Name: "John Smith", Email: "john@example.com", Department: "Engineering", Position: "Senior Developer", AnnualSalary: 75000},
		{ID: 102, Name: "Sarah Johnson", Email: "sarah@example.com", Department: "HR", Position: "HR Manager", AnnualSalary: 65000},
		{ID: 103, Name: "Michael Brown", Email: "michael@example.com", Department: "Marketing", Position: "Marketing Specialist", AnnualSalary: 60000},
		{ID: 104, Name: "Emily Davis", Email: "emily@example.com", Department: "Sales", Position: "Sales Representative", AnnualSalary: 55000},
		{ID: 105, Name: "David Wilson", Email: "david@example.com", Department: "Finance", Position: "Financial Analyst", AnnualSalary: 70000},
	}
}

func (d *Directory) Get(id int) (Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, nil
}

// ForUser resolves the employee record linked to a login account.
func (d *Directory) ForUser(userID int) (Employee, error) {
	d.mu.RLock()
	id, ok := d.byUser[userID]
	d.mu.RUnlock()
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return d.Get(id)
}

func (d *Directory) List() []Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Employee, 0, len(d.employees))
	for _, e := range d.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.employees)
}
