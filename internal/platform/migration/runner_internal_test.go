// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPgx5DSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/kanko", "pgx5://u:p@localhost:5432/kanko"},
		{"postgresql://localhost/kanko", "pgx5://localhost/kanko"},
		{"pgx5://localhost/kanko", "pgx5://localhost/kanko"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, toPgx5DSN(tt.in))
	}
}
