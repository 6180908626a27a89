// internal/utils/pagination.go
package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const TotalCountHeader = "X-Total-Count"

// ListParams are the json-server style list parameters (_sort, _order,
// _page, _limit). Paginate is set only when both _page and _limit are sent.
type ListParams struct {
	Sort     string
	Order    string
	Paginate bool
	Page     int
	Limit    int
}

func GetListParams(c *gin.Context) ListParams {
	params := ListParams{
		Sort:  c.Query("_sort"),
		Order: c.DefaultQuery("_order", "asc"),
	}

	rawPage, hasPage := c.GetQuery("_page")
	rawLimit, hasLimit := c.GetQuery("_limit")
	if hasPage && hasLimit {
		params.Paginate = true
		params.Page, _ = strconv.Atoi(rawPage)
		params.Limit, _ = strconv.Atoi(rawLimit)
	}

	return params
}

// SearchPageParams reads page/limit for search. Missing or malformed values
// come back as zero for the caller to default.
func SearchPageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}

func SetTotalCountHeader(c *gin.Context, total int64) {
	c.Header(TotalCountHeader, strconv.FormatInt(total, 10))
}
