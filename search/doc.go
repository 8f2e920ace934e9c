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


// Package search provides semantic search over embedded document chunks.
//
// The Searcher embeds the query, finds the most similar stored chunk
// vectors for the configured provider, and boosts hits that contain every
// significant word of the query verbatim. Results are scored and ranked
// so callers can feed them directly into retrieval workflows.
package search
