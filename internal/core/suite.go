package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSuite = errors.New("invalid suite")

// DefaultSuiteName is the name of the built-in HR suite.
const DefaultSuiteName = "hr"

// DefaultSuite returns the six HR checks, with identifiers quoted and the
// catalog query picked for the given database/sql driver.
func DefaultSuite(driver string) *Suite {
	countries := qualify(driver, "hr", "countries")
	employees := qualify(driver, "hr", "employees")
	dependents := qualify(driver, "hr", "dependents")

	return &Suite{
		Name: DefaultSuiteName,
		Checks: []Check{
			{
				Name:        "table_countries_present",
				Description: "Verify a table is present or not",
				Kind:        KindTableExists,
				SQL:         catalogQuery(driver, "hr", "countries"),
			},
			{
				Name:        "countries_row_count",
				Description: "Verify the number of rows",
				Kind:        KindRowCount,
				SQL:         "SELECT country_id FROM " + countries,
				Expect:      25,
			},
			{
				Name:        "employee_king_exists",
				Description: "Check if exists in hr.employees",
				Kind:        KindExists,
				SQL:         "SELECT employee_id FROM " + employees + " WHERE last_name = 'King'",
			},
			{
				Name:        "employee_job_100_absent",
				Description: "Check if not exists in hr.employees",
				Kind:        KindAbsent,
				SQL:         "SELECT employee_id FROM " + employees + " WHERE job_id = '100'",
			},
			{
				Name:        "dependents_max_id",
				Description: "Verify the maximum value in hr.dependents.dependent_id",
				Kind:        KindScalar,
				SQL:         "SELECT MAX(dependent_id) dependent_id FROM " + dependents,
				Expect:      30,
				Message:     "maximum value does not match expected value",
			},
			{
				Name:        "dependents_id_range",
				Description: "Verify the values range for hr.dependents.dependent_id",
				Kind:        KindRangeEmpty,
				SQL:         "SELECT dependent_id FROM " + dependents + " WHERE dependent_id BETWEEN 40 AND 100",
			},
		},
	}
}

func qualify(driver, schema, table string) string {
	switch driver {
	case "odbc", "sqlserver", "mssql", "sqlite":
		return fmt.Sprintf("[%s].[%s]", schema, table)
	default:
		return schema + "." + table
	}
}

func catalogQuery(driver, schema, table string) string {
	if driver == "sqlite" {
		return fmt.Sprintf("SELECT name FROM %s.sqlite_master WHERE type = 'table' AND name = '%s'", schema, table)
	}
	return fmt.Sprintf("SELECT * FROM information_schema.tables WHERE table_name = '%s'", table)
}

// LoadSuite reads a YAML suite file and validates it.
func LoadSuite(path string) (*Suite, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	return ParseSuite(content)
}

func ParseSuite(content []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(content, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuite, err)
	}

	for i := range s.Checks {
		if s.Checks[i].Name == "" {
			s.Checks[i].Name = Slugify(s.Checks[i].Description)
		}
		s.Checks[i].Kind = CheckKind(strings.ToLower(string(s.Checks[i].Kind)))
	}

	if err := ValidateSuite(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("checkkind", func(fl validator.FieldLevel) bool {
		kind := CheckKind(fl.Field().String())
		for _, k := range Kinds {
			if k == kind {
				return true
			}
		}
		return false
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Check)
		if (c.Kind == KindRowCount || c.Kind == KindScalar) && c.Expect == nil {
			sl.ReportError(c.Kind, "Expect", "Expect", "required_for_kind", string(c.Kind))
		}
	}, Check{})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(Suite)
		seen := make(map[string]bool, len(s.Checks))
		for _, c := range s.Checks {
			if c.Name != "" && seen[c.Name] {
				sl.ReportError(c.Name, "Checks", "Checks", "unique_names", c.Name)
			}
			seen[c.Name] = true
		}
	}, Suite{})

	return v
}

// ValidateSuite checks names, kinds and expectations of every check in s.
func ValidateSuite(s *Suite) error {
	if s == nil {
		return fmt.Errorf("%w: nil suite", ErrInvalidSuite)
	}
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSuite, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSuite, err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "checkkind":
		return fmt.Sprintf("%s: unknown kind %q", fe.Namespace(), fe.Value())
	case "required_for_kind":
		return fmt.Sprintf("%s: required for kind %s", fe.Namespace(), fe.Param())
	case "unique_names":
		return fmt.Sprintf("duplicate check name %q", fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
	}
}
