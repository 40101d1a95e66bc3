// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package series

import "time"

// SetClock overrides the clock of service.
func SetClock(service *Service, now func() time.Time) { service.now = now }
