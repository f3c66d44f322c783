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

// Package storage defines the repository contracts for parley.
//
// Each entity (users, conversations, memberships, messages and call
// sessions) has one repository interface. Two backends implement all of
// them:
//
//   - sqlstore: a relational backend (PostgreSQL or SQLite) with one table
//     per entity, foreign-key columns and transactional multi-row writes.
//   - badger: a key-value backend where every item is keyed by its ID and
//     every other query is served by a secondary index that is written by
//     the same call that writes the item.
//
// Callers only ever see core entities and primitive query parameters. The
// backend is chosen once at startup (see parley.Open) and never changes.
//
// # Absence
//
// Lookups that find nothing return nil, nil. Absence is never an error.
//
// # Differences between backends
//
// The contracts return the same results on both backends, but their
// failure behaviour differs:
//
//   - Uniqueness (usernames, memberships) is enforced by the relational
//     backend only. On the key-value backend ExistsByUsername followed by
//     Save is a race.
//   - CreateWithMembers and DeleteByConversationID are atomic on the
//     relational backend and a sequence of independent writes on the
//     key-value backend.
//   - Index entries on the key-value backend are separate writes. A failed
//     write can leave an index entry out of step with its item.
//   - Backend faults keep their backend-specific shape. Only the sentinels
//     in this package are shared.
//
// # Pagination
//
// Message history offers the first page newest-first and then a cursor
// ("strictly before this timestamp"). Numeric offsets are not part of the
// contract.
//
// # Context Support
//
// All repository methods accept context.Context. Pass context.Background()
// for operations without specific timeout requirements.
package storage
