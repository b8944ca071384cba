// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type testQuery struct {
	Limit     int      `json:"limit" validate:"min=1,max=1000"`
	Algorithm string   `json:"algorithm" validate:"omitempty,algorithm"`
	Metric    string   `json:"metric" validate:"omitempty,metric"`
	Reducer   string   `json:"reducer,omitempty" validate:"omitempty,reducer"`
	Name      string   `json:"name" validate:"required"`
	Tags      []string `json:"tags" validate:"max=2"`
	Internal  string   `json:"-"`
}

func validQuery() testQuery {
	return testQuery{Limit: 10, Name: "run"}
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testQuery)
	}{
		{"defaults", func(*testQuery) {}},
		{"algorithm lower", func(q *testQuery) { q.Algorithm = "detconsort" }},
		{"algorithm mixed case", func(q *testQuery) { q.Algorithm = "MMR" }},
		{"metric", func(q *testQuery) { q.Metric = "expu" }},
		{"reducer", func(q *testQuery) { q.Reducer = "MaxMinDiff" }},
		{"reducer alias", func(q *testQuery) { q.Reducer = "LTwo" }},
		{"limit bounds", func(q *testQuery) { q.Limit = 1000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			tt.mutate(&q)
			if err := ValidateStruct(&q); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*testQuery)
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{"limit too low", func(q *testQuery) { q.Limit = 0 }, "limit", "min", "limit must be at least 1"},
		{"limit too high", func(q *testQuery) { q.Limit = 5000 }, "limit", "max", "limit must be at most 1000"},
		{"unknown algorithm", func(q *testQuery) { q.Algorithm = "bogus" }, "algorithm", "algorithm", "algorithm must be a known algorithm"},
		{"unknown metric", func(q *testQuery) { q.Metric = "NDCG" }, "metric", "metric", "metric must be one of EXP, EXPU, EXPRU"},
		{"unknown reducer", func(q *testQuery) { q.Reducer = "Median" }, "reducer", "reducer", "reducer must be a known reducer"},
		{"missing name", func(q *testQuery) { q.Name = "" }, "name", "required", "name is required"},
		{"too many tags", func(q *testQuery) { q.Tags = []string{"a", "b", "c"} }, "tags", "max", "tags must be at most 2 entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			tt.mutate(&q)
			err := ValidateStruct(&q)
			if err == nil {
				t.Fatal("ValidateStruct() should have returned an error")
			}

			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("got field=%s tag=%s, want field=%s tag=%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	q := validQuery()
	q.Limit = 0

	err := ValidateStruct(&q)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != CodeValidationError {
		t.Errorf("Code = %q, want %q", apiErr.Code, CodeValidationError)
	}
	if apiErr.Message != "limit must be at least 1" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "limit" {
		t.Errorf("Details[field] = %v, want limit", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	q := validQuery()
	q.Limit = 0
	q.Name = ""

	err := ValidateStruct(&q)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	apiErr := err.ToAPIError()
	if !strings.Contains(apiErr.Message, "limit: ") || !strings.Contains(apiErr.Message, "name: ") {
		t.Errorf("Message = %q, want both fields listed", apiErr.Message)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %#v, want 2 entries", apiErr.Details["fields"])
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("Error() = %q, want joined messages", err.Error())
	}
}

func TestToAPIError_Empty(t *testing.T) {
	apiErr := (&RequestValidationError{}).ToAPIError()
	if apiErr.Code != CodeValidationError || apiErr.Message != "Validation failed" {
		t.Errorf("got %+v", apiErr)
	}
}

func TestValidateStruct_NotAStruct(t *testing.T) {
	err := ValidateStruct("not a struct")
	if err == nil {
		t.Fatal("expected an error for a non-struct")
	}
	if got := err.Errors()[0].Field(); got != "unknown" {
		t.Errorf("Field() = %q, want unknown", got)
	}
}
