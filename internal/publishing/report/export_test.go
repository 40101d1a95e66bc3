// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import "time"

// SetClock overrides the clock of job.
func SetClock(job *Job, now func() time.Time) { job.now = now }
