// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommandTimeout(t *testing.T) {
	assert.Equal(t, ioTimeout, commandTimeout(0))
	assert.Equal(t, ioTimeout, commandTimeout(2*time.Minute))
	assert.Equal(t, 500*time.Millisecond, commandTimeout(3*time.Second))
}
