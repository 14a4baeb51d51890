package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SortDirection is the wire value for sort ordering.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// FilterOperator selects how a filter value is matched against a column.
type FilterOperator string

const (
	OperatorEqual    FilterOperator = "equal"
	OperatorNotEqual FilterOperator = "not_equal"
	OperatorLike     FilterOperator = "like"
	OperatorILike    FilterOperator = "ilike"
	OperatorBoolean  FilterOperator = "boolean_is"
)

// Sort describes an ordering over a single column.
type Sort struct {
	Column    string
	Direction SortDirection
}

// FilterElement is one column/operator/value triple. Element order is
// meaningful and preserved on the wire.
type FilterElement struct {
	Column   string
	Operator FilterOperator
	Value    string
}

// Filter is an ordered set of filter elements.
type Filter struct {
	Elements []FilterElement
}

// Page is a pagination cursor with optional filtering and sorting.
// Index is 1-based.
type Page struct {
	Index  int
	Size   int
	Filter *Filter
	Sort   *Sort
}

const DefaultPageSize = 50

// DefaultPage is the page used when a caller supplies none.
func DefaultPage() Page {
	return Page{Index: 1, Size: DefaultPageSize}
}

// QueryValues renders the page as list-endpoint query parameters:
// offset, limit, filter[<column>], filter:op[<column>], sortColumn and
// sortDirection.
func (p Page) QueryValues() url.Values {
	values := url.Values{}
	values.Set("offset", strconv.Itoa((p.Index-1)*p.Size))
	values.Set("limit", strconv.Itoa(p.Size))

	if p.Filter != nil {
		for _, element := range p.Filter.Elements {
			values.Set(fmt.Sprintf("filter[%s]", element.Column), element.Value)
			values.Set(fmt.Sprintf("filter:op[%s]", element.Column), string(element.Operator))
		}
	}

	if p.Sort != nil {
		values.Set("sortColumn", p.Sort.Column)
		values.Set("sortDirection", string(p.Sort.Direction))
	}

	return values
}

// PolicyColumns are the columns the list endpoint accepts for filtering
// and sorting.
var PolicyColumns = map[string]bool{
	"name":        true,
	"description": true,
	"is_enabled":  true,
	"ctime":       true,
	"mtime":       true,
}

// PageFromRequest is the server-side inverse of QueryValues. Unknown
// columns, operators or directions are rejected; absent parameters fall
// back to the default page.
func PageFromRequest(r *http.Request) (Page, error) {
	page := DefaultPage()
	query := r.URL.Query()

	if limit := query.Get("limit"); limit != "" {
		size, err := strconv.Atoi(limit)
		if err != nil || size < 1 {
			return Page{}, fmt.Errorf("invalid limit %q", limit)
		}
		page.Size = size
	}
	if offset := query.Get("offset"); offset != "" {
		parsed, err := strconv.Atoi(offset)
		if err != nil || parsed < 0 || parsed%page.Size != 0 {
			return Page{}, fmt.Errorf("invalid offset %q", offset)
		}
		page.Index = parsed/page.Size + 1
	}

	filter, err := filterFromQuery(query)
	if err != nil {
		return Page{}, err
	}
	page.Filter = filter

	if column := query.Get("sortColumn"); column != "" {
		if !PolicyColumns[column] {
			return Page{}, fmt.Errorf("invalid sort column %q", column)
		}
		direction := SortDirection(query.Get("sortDirection"))
		if direction == "" {
			direction = SortAscending
		}
		if direction != SortAscending && direction != SortDescending {
			return Page{}, fmt.Errorf("invalid sort direction %q", direction)
		}
		page.Sort = &Sort{Column: column, Direction: direction}
	}

	return page, nil
}

func filterFromQuery(query url.Values) (*Filter, error) {
	filter := &Filter{}
	for key, values := range query {
		column, ok := cutFilterKey(key, "filter")
		if !ok || len(values) == 0 {
			continue
		}
		if !PolicyColumns[column] {
			return nil, fmt.Errorf("invalid filter column %q", column)
		}

		operator := OperatorEqual
		if op := query.Get(fmt.Sprintf("filter:op[%s]", column)); op != "" {
			operator = FilterOperator(op)
			switch operator {
			case OperatorEqual, OperatorNotEqual, OperatorLike, OperatorILike, OperatorBoolean:
			default:
				return nil, fmt.Errorf("invalid filter operator %q", op)
			}
		}

		filter.Elements = append(filter.Elements, FilterElement{
			Column:   column,
			Operator: operator,
			Value:    values[0],
		})
	}
	if len(filter.Elements) == 0 {
		return nil, nil
	}
	// Query maps are unordered; keep parsed filters deterministic.
	sort.Slice(filter.Elements, func(i, j int) bool {
		return filter.Elements[i].Column < filter.Elements[j].Column
	})
	return filter, nil
}

// cutFilterKey extracts the column from keys shaped "prefix[column]".
func cutFilterKey(key, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(key, prefix+"[")
	if !ok {
		return "", false
	}
	column, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return "", false
	}
	return column, true
}
