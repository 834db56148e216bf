package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"med-connect/internal/model"
	"med-connect/pkg/apierror"
)

func TestCodeServiceRegister(t *testing.T) {
	t.Parallel()

	t.Run("stores the desired code normalized", func(t *testing.T) {
		f := newFixture(t)

		entry, err := f.codes.Register(context.Background(), "patient-1", " ab3de9k2 ")
		require.NoError(t, err)
		require.Equal(t, "AB3DE9K2", entry.Code)
		require.Equal(t, "patient-1", entry.PatientID)

		patientID, err := f.codes.Resolve(context.Background(), "ab3de9k2")
		require.NoError(t, err)
		require.Equal(t, "patient-1", patientID)
	})

	t.Run("replaces the previous code of the patient", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)
		_, err = f.codes.Register(ctx, "patient-1", "QWERTY23")
		require.NoError(t, err)

		_, err = f.codes.Resolve(ctx, "AB3DE9K2")
		require.ErrorIs(t, err, model.ErrCodeNotFound)

		patientID, err := f.codes.Resolve(ctx, "QWERTY23")
		require.NoError(t, err)
		require.Equal(t, "patient-1", patientID)
	})

	t.Run("generates a code when none is desired", func(t *testing.T) {
		f := newFixture(t)

		entry, err := f.codes.Register(context.Background(), "patient-1", "")
		require.NoError(t, err)
		require.Len(t, entry.Code, DefaultCodeLength)
		require.True(t, ValidCode(entry.Code))
	})

	t.Run("rejects malformed desired codes", func(t *testing.T) {
		f := newFixture(t)

		for _, code := range []string{"AB1", "AB3DE9K2X", "AB3DE0K2", "AB3DEIK2", "AB-DE9K2"} {
			_, err := f.codes.Register(context.Background(), "patient-1", code)

			var apiErr *apierror.APIError
			require.True(t, errors.As(err, &apiErr), code)
			require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
		}
	})

	t.Run("requires a patient", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.codes.Register(context.Background(), "  ", "AB3DE9K2")

		var apiErr *apierror.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, "patient_id", apiErr.Details)
	})

	t.Run("falls back to a generated code on collision", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)

		f.codes.generate = func() (string, error) { return "ZZZZZZZZ", nil }
		entry, err := f.codes.Register(ctx, "patient-2", "AB3DE9K2")
		require.NoError(t, err)
		require.Equal(t, "ZZZZZZZZ", entry.Code)

		owner, err := f.codes.Resolve(ctx, "AB3DE9K2")
		require.NoError(t, err)
		require.Equal(t, "patient-1", owner)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.codes.Register(ctx, "patient-1", "AB3DE9K2")
		require.NoError(t, err)

		calls := 0
		f.codes.generate = func() (string, error) {
			calls++
			return "AB3DE9K2", nil
		}

		_, err = f.codes.Register(ctx, "patient-2", "")
		require.ErrorIs(t, err, model.ErrCodeUnavailable)
		require.Equal(t, maxCodeAttempts, calls)

		_, err = f.codes.Register(ctx, "patient-3", "AB3DE9K2")
		require.ErrorIs(t, err, model.ErrCodeUnavailable)
	})
}

func TestCodeServiceResolve(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.codes.Resolve(context.Background(), "ZZZZZZZZ")
	require.ErrorIs(t, err, model.ErrCodeNotFound)

	_, err = f.codes.Resolve(context.Background(), "   ")
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}

func TestGenerateCode(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateCode(DefaultCodeLength)
		require.NoError(t, err)
		require.Len(t, code, DefaultCodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, r), code)
		}
		seen[code] = true
	}
	require.Greater(t, len(seen), 190)
}
