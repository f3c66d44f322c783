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

import "errors"

var (
	// ErrDuplicateKey indicates a uniqueness violation.
	// Only relational backends enforce uniqueness and return it.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a stored record could not be decoded.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTableNotFound indicates a key-value table has not been created.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableExists indicates a key-value table was created twice.
	ErrTableExists = errors.New("table already exists")

	// ErrTableNotActive indicates a key-value table did not become ready in time.
	ErrTableNotActive = errors.New("table not active")

	// ErrUnknownBackend indicates a backend kind that is not supported.
	ErrUnknownBackend = errors.New("unknown storage backend")
)
