/*
 * Copyright 2025 the magpie authors.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// PageRequest describes pagination, an optional equality filter, and ordering.
// The filter is keyed by attribute name; translation to column names is the
// repository's job.
type PageRequest struct {
	page      int
	pageSize  int
	filter    Record
	orderBy   string
	orderDesc bool
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 10
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() Record {
	return p.filter
}

func (p *PageRequest) GetOrderBy() string {
	return p.orderBy
}

func (p *PageRequest) OrderDesc() bool {
	return p.orderDesc
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter Record, orderBy string, orderDesc bool) *PageRequest {
	return &PageRequest{page, pageSize, filter, orderBy, orderDesc}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter Record) *PageRequest {
	return NewPageRequest(page, pageSize, filter, "", false)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, "", false)
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// TotalPages returns the number of pages implied by Total and PageSize.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 0
	}
	pages := p.Total / p.PageSize
	if p.Total%p.PageSize != 0 {
		pages++
	}
	return pages
}

// HasNext reports whether a page follows the current one.
func (p *Pagination[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}
