package endpoint

import (
	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/util"
)

// ProgramDurationSummary godoc
// @Summary      Per-program enrollment and progress summary
// @Description  Aggregates materialized enrollment counters per program; performs no recomputation
// @Tags         Dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]engine.ProgramDurationRow} "Summary retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /dashboard/program-duration [get]
func ProgramDurationSummary(c *gin.Context) {
	e, ok := ensureEngine(c)
	if !ok {
		return
	}

	rows, err := e.ProgramDurationSummary(c.Request.Context())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to build program summary", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Program duration summary retrieved", Data: rows})
}
