package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dinein-app/services"
	"github.com/yeremiapane/dinein-app/utils"
)

type BillController struct {
	Bills *services.BillService
}

func NewBillController(bills *services.BillService) *BillController {
	return &BillController{Bills: bills}
}

func (bc *BillController) CreateBill(c *gin.Context) {
	sessionID, ok := idParam(c, "session_id")
	if !ok {
		return
	}
	var req services.BillRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := bc.Bills.CreateBill(c.Request.Context(), sessionID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Bill created", bill)
}

// PayBill records a captured payment. The reply carries the session so the
// caller sees whether the table closed.
func (bc *BillController) PayBill(c *gin.Context) {
	id, ok := idParam(c, "bill_id")
	if !ok {
		return
	}
	bill, session, err := bc.Bills.MarkBillPaid(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Bill paid", gin.H{"bill": bill, "session": session})
}

func (bc *BillController) CancelBill(c *gin.Context) {
	id, ok := idParam(c, "bill_id")
	if !ok {
		return
	}
	bill, err := bc.Bills.CancelBill(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Bill cancelled", bill)
}
