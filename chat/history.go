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


package chat

import (
	"context"
	"time"

	"github.com/poiesic/parley/core"
	"github.com/poiesic/parley/storage"
)

// HistoryIterator walks a conversation's messages newest first, one page at
// a time, using the oldest creation time of each page as the cursor of the
// next. Messages that share that creation time are fetched again and the
// ones already returned are skipped, so ties never fall between pages.
type HistoryIterator struct {
	messages       storage.MessageRepository
	conversationID core.ID
	pageSize       int
}

// NewHistoryIterator creates an iterator over conversationID. A pageSize
// of zero or less selects storage.DefaultPageSize.
func (s *Service) NewHistoryIterator(conversationID core.ID, pageSize int) *HistoryIterator {
	return &HistoryIterator{
		messages:       s.messages,
		conversationID: conversationID,
		pageSize:       storage.NormalizePageSize(pageSize),
	}
}

// ForEach calls fn with each page until the history is exhausted or fn
// returns an error. Context cancellation is checked between pages.
func (it *HistoryIterator) ForEach(ctx context.Context, fn func([]*core.Message) error) error {
	page, err := it.messages.FindByConversationIDOrderByCreatedAtDesc(ctx, it.conversationID, it.pageSize)
	if err != nil {
		return err
	}
	exhausted := len(page) < it.pageSize

	var (
		boundary     map[core.ID]bool
		boundaryTime time.Time
	)
	for len(page) > 0 {
		if err := fn(page); err != nil {
			return err
		}
		if exhausted {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		oldest := page[len(page)-1].CreatedAt
		if boundary == nil || !oldest.Equal(boundaryTime) {
			boundary = make(map[core.ID]bool)
			boundaryTime = oldest
		}
		for _, m := range page {
			if m.CreatedAt.Equal(oldest) {
				boundary[m.Id] = true
			}
		}

		// The cursor is exclusive; one tick past oldest includes its ties.
		limit := it.pageSize + len(boundary)
		found, err := it.messages.FindByConversationIDAndCreatedAtBefore(ctx, it.conversationID, oldest.Add(time.Microsecond), limit)
		if err != nil {
			return err
		}
		exhausted = len(found) < limit

		page = make([]*core.Message, 0, it.pageSize)
		for _, m := range found {
			if boundary[m.Id] {
				continue
			}
			if len(page) == it.pageSize {
				exhausted = false
				break
			}
			page = append(page, m)
		}
	}
	return nil
}
