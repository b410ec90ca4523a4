package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
)

const (
	BillingSignatureHeader = "X-Billing-Signature"
	maxBillingPayload      = 64 << 10
)

type BillingHandler struct {
	billingUC domain.BillingUsecase
}

func NewBillingHandler(public, protected *gin.RouterGroup, billingUC domain.BillingUsecase) {
	handler := &BillingHandler{billingUC: billingUC}

	public.GET("/billing/plans", handler.ListPlans)
	public.POST("/billing/webhook", handler.ProviderWebhook)

	billing := protected.Group("/billing")
	{
		billing.GET("/subscription", handler.GetSubscription)
		billing.POST("/subscription/plan", handler.ChangePlan)
		billing.POST("/subscription/cancel", handler.Cancel)
	}
}

// ListPlans godoc
// @Summary      List plans
// @Tags         billing
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.Plan}
// @Router       /billing/plans [get]
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans, err := h.billingUC.ListPlans(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Plans", plans)
}

// GetSubscription godoc
// @Summary      Current subscription with usage
// @Tags         billing
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.SubscriptionOverview}
// @Router       /billing/subscription [get]
// @Security     BearerAuth
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	overview, err := h.billingUC.GetSubscription(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Subscription", overview)
}

// ChangePlan godoc
// @Summary      Change plan
// @Description  Owner only. Downgrades are refused while current usage exceeds the target plan.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        plan  body      domain.ChangePlanRequest  true  "Plan"
// @Success      200   {object}  response.Response{data=domain.SubscriptionOverview}
// @Failure      403   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /billing/subscription/plan [post]
// @Security     BearerAuth
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	var req domain.ChangePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	overview, err := h.billingUC.ChangePlan(c.Request.Context(), req.PlanCode)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Plan changed", overview)
}

// Cancel godoc
// @Summary      Cancel at period end
// @Tags         billing
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.SubscriptionOverview}
// @Router       /billing/subscription/cancel [post]
// @Security     BearerAuth
func (h *BillingHandler) Cancel(c *gin.Context) {
	overview, err := h.billingUC.Cancel(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Subscription will cancel at period end", overview)
}

// ProviderWebhook godoc
// @Summary      Billing provider notification
// @Description  Body signed with HMAC-SHA256, header X-Billing-Signature: sha256=<hex>
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        X-Billing-Signature  header    string  true  "sha256=<hex>"
// @Success      200                  {object}  response.Response
// @Failure      401                  {object}  response.Response
// @Router       /billing/webhook [post]
func (h *BillingHandler) ProviderWebhook(c *gin.Context) {
	// the signature covers the exact bytes, so read the raw body
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBillingPayload+1))
	if err != nil {
		c.Error(apperror.BadRequest("Could not read body"))
		return
	}
	if len(payload) > maxBillingPayload {
		c.Error(apperror.New(http.StatusRequestEntityTooLarge, "Payload too large", nil))
		return
	}

	if err := h.billingUC.HandleProviderEvent(c.Request.Context(), payload, c.GetHeader(BillingSignatureHeader)); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Event processed", nil)
}
