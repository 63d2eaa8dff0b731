// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"os"
	"testing"

	"rollcall/internal/roster"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRosterStoreTableNames(t *testing.T) {
	s, err := NewRosterStore(nil, "")
	require.NoError(t, err)
	assert.Equal(t, `"attendance_records"`, s.table)

	for _, bad := range []string{"Roster", "a-b", "x; drop table y", "1abc"} {
		_, err := NewRosterStore(nil, bad)
		assert.Error(t, err, bad)
	}
}

func TestSaveStudentsRequiresRunID(t *testing.T) {
	s, err := NewRosterStore(nil, "")
	require.NoError(t, err)
	assert.Error(t, s.SaveStudents(context.Background(), "", []roster.Student{{IdentifierFull: "px-1"}}))
	assert.NoError(t, s.SaveStudents(context.Background(), "run", nil))
}

// TestRoundTrip needs a scratch database: ROLLCALL_TEST_DSN=postgres://...
func TestRoundTrip(t *testing.T) {
	dsn := os.Getenv("ROLLCALL_TEST_DSN")
	if dsn == "" {
		t.Skip("ROLLCALL_TEST_DSN not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn, "rollcall_test_records")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	runID := uuid.NewString()
	students := []roster.Student{
		{Surname: "山田", GivenName: "太郎", FullName: "山田 太郎", IdentifierFull: "px-01", IdentifierNum: "01", Confidence: 0.9, SourceFile: "a.png"},
		{FullName: "Jane Doe", IdentifierFull: "px-02", IdentifierNum: "02", Confidence: 0.7, SourceFile: "a.png"},
	}
	require.NoError(t, s.SaveStudents(ctx, runID, students))

	// saving again updates in place
	students[1].Confidence = 0.8
	require.NoError(t, s.SaveStudents(ctx, runID, students[1:]))

	got, err := s.ListRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "山田", got[0].Surname)
	assert.Equal(t, "太郎", got[0].GivenName)
	assert.Equal(t, 0.8, got[1].Confidence)
	assert.Equal(t, runID, got[1].RunID)
}
