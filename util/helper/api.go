package helper_util

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	arbiter_errors "github.com/arbiterhq/arbiter/errors"
)

func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: limit must be an integer", arbiter_errors.ErrInvalidPagination)
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: offset must be an integer", arbiter_errors.ErrInvalidPagination)
	}
	if limit < 0 || offset < 0 {
		return 0, 0, fmt.Errorf("%w: limit and offset must not be negative", arbiter_errors.ErrInvalidPagination)
	}
	return limit, offset, nil
}
