// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"time"

	"github.com/poiesic/parley/core"
)

// TimeLayout is the string form of stored timestamps. It is fixed width
// and always UTC, so comparing two encoded timestamps as strings gives the
// same answer as comparing the times.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// MarshalID encodes an ID as its canonical string form.
func MarshalID(id core.ID) string {
	return id.String()
}

// UnmarshalID decodes an ID written by MarshalID.
func UnmarshalID(s string) (core.ID, error) {
	id, err := core.ParseID(s)
	if err != nil {
		return core.NilID, fmt.Errorf("%w: id %q: %w", ErrSerializationFailed, s, err)
	}
	return id, nil
}

// MarshalTime encodes a timestamp in TimeLayout.
func MarshalTime(t time.Time) string {
	return core.NormalizeTime(t).Format(TimeLayout)
}

// UnmarshalTime decodes a timestamp written by MarshalTime.
func UnmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %w", ErrSerializationFailed, s, err)
	}
	return t.UTC(), nil
}
