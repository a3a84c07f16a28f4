package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListBillingEligibility backs the monthly batch page: one entry per current
// tenant with the reason a bill can or cannot be created yet.
func (s *Server) ListBillingEligibility(c *gin.Context) {
	month, err := optionalQueryInt(c, "month")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := optionalQueryInt(c, "year")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if month == 0 || year == 0 {
		now := s.clock.Now(c.Request.Context())
		if month == 0 {
			month = int(now.Month())
		}
		if year == 0 {
			year = now.Year()
		}
	}

	entries, err := s.eligibilitySvc.ListForCycle(c.Request.Context(), dormitoryFromContext(c).ID, month, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ready := 0
	for _, e := range entries {
		if e.Result.CanCreateBill {
			ready++
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "month": month, "year": year, "ready": ready})
}
