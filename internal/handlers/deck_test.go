package handlers

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"mnemo-backend/internal/models"
)

func TestCreateDeckRequest_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name    string
		req     models.CreateDeckRequest
		wantErr bool
	}{
		{
			name: "valid deck",
			req: models.CreateDeckRequest{
				Title: "Go interview prep",
				Cards: []models.NewCard{{Front: "q", Back: "a"}},
			},
		},
		{
			name:    "missing title",
			req:     models.CreateDeckRequest{Cards: []models.NewCard{{Front: "q", Back: "a"}}},
			wantErr: true,
		},
		{
			name:    "no cards",
			req:     models.CreateDeckRequest{Title: "empty"},
			wantErr: true,
		},
		{
			name: "card missing back",
			req: models.CreateDeckRequest{
				Title: "partial",
				Cards: []models.NewCard{{Front: "q"}},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Struct(tc.req)
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidationFields(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	reps := -1
	ease := 2.7
	err := validate.Struct(models.UpdateCardRequest{
		Repetitions: &reps,
		EaseFactor:  &ease,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := validationFields(err)
	if fields["repetitions"] == "" {
		t.Error("missing repetitions field error")
	}
	if fields["ease_factor"] == "" {
		t.Error("missing ease_factor field error")
	}
	if fields["due_at"] == "" {
		t.Error("missing due_at field error")
	}
}
