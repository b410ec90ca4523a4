package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type WebhookHandler struct {
	webhookUC domain.WebhookUsecase
}

func NewWebhookHandler(protected *gin.RouterGroup, webhookUC domain.WebhookUsecase, managers gin.HandlerFunc) {
	handler := &WebhookHandler{webhookUC: webhookUC}

	webhooks := protected.Group("/webhooks", managers)
	{
		webhooks.GET("/events", handler.Events)
		webhooks.GET("", handler.List)
		webhooks.POST("", handler.Create)
		webhooks.GET("/:id", handler.Get)
		webhooks.PUT("/:id", handler.Update)
		webhooks.DELETE("/:id", handler.Delete)
		webhooks.POST("/:id/test", handler.SendTest)
		webhooks.GET("/:id/deliveries", handler.ListDeliveries)
		webhooks.POST("/:id/deliveries/:deliveryId/redeliver", handler.Redeliver)
	}
}

// Events godoc
// @Summary      Subscribable events
// @Tags         webhooks
// @Produce      json
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /webhooks/events [get]
// @Security     BearerAuth
func (h *WebhookHandler) Events(c *gin.Context) {
	response.Success(c, http.StatusOK, "Webhook events", domain.WebhookEvents)
}

// List godoc
// @Summary      List webhook endpoints
// @Tags         webhooks
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.Webhook}
// @Router       /webhooks [get]
// @Security     BearerAuth
func (h *WebhookHandler) List(c *gin.Context) {
	webhooks, err := h.webhookUC.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Webhooks", webhooks)
}

// Create godoc
// @Summary      Register a webhook endpoint
// @Description  HTTPS is required outside development. The signing secret is only returned here.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        webhook  body      domain.WebhookInput  true  "Webhook"
// @Success      201      {object}  response.Response{data=domain.Webhook}
// @Failure      400      {object}  response.Response
// @Router       /webhooks [post]
// @Security     BearerAuth
func (h *WebhookHandler) Create(c *gin.Context) {
	var input domain.WebhookInput
	if !bindJSON(c, &input) {
		return
	}
	webhook, err := h.webhookUC.Create(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Webhook created", webhook)
}

// Get godoc
// @Summary      Get a webhook endpoint
// @Tags         webhooks
// @Produce      json
// @Param        id   path      string  true  "Webhook ID"
// @Success      200  {object}  response.Response{data=domain.Webhook}
// @Router       /webhooks/{id} [get]
// @Security     BearerAuth
func (h *WebhookHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	webhook, err := h.webhookUC.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Webhook", webhook)
}

// Update godoc
// @Summary      Update a webhook endpoint
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Webhook ID"
// @Param        webhook  body      domain.WebhookInput  true  "Webhook"
// @Success      200      {object}  response.Response{data=domain.Webhook}
// @Router       /webhooks/{id} [put]
// @Security     BearerAuth
func (h *WebhookHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input domain.WebhookInput
	if !bindJSON(c, &input) {
		return
	}
	webhook, err := h.webhookUC.Update(c.Request.Context(), id, input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Webhook updated", webhook)
}

// Delete godoc
// @Summary      Delete a webhook endpoint
// @Tags         webhooks
// @Produce      json
// @Param        id   path      string  true  "Webhook ID"
// @Success      200  {object}  response.Response
// @Router       /webhooks/{id} [delete]
// @Security     BearerAuth
func (h *WebhookHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.webhookUC.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Webhook deleted", nil)
}

// SendTest godoc
// @Summary      Send a test event
// @Description  Delivers a webhook.test event right away and returns the recorded attempt
// @Tags         webhooks
// @Produce      json
// @Param        id   path      string  true  "Webhook ID"
// @Success      200  {object}  response.Response{data=domain.WebhookDelivery}
// @Router       /webhooks/{id}/test [post]
// @Security     BearerAuth
func (h *WebhookHandler) SendTest(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	delivery, err := h.webhookUC.SendTest(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Test event sent", delivery)
}

// ListDeliveries godoc
// @Summary      Delivery log
// @Tags         webhooks
// @Produce      json
// @Param        id         path      string  true   "Webhook ID"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Items per page"
// @Success      200        {object}  response.Response{data=domain.PaginatedResult[domain.WebhookDelivery]}
// @Router       /webhooks/{id}/deliveries [get]
// @Security     BearerAuth
func (h *WebhookHandler) ListDeliveries(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	result, err := h.webhookUC.ListDeliveries(c.Request.Context(), id, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Deliveries", result)
}

// Redeliver godoc
// @Summary      Retry a delivery
// @Tags         webhooks
// @Produce      json
// @Param        id          path      string  true  "Webhook ID"
// @Param        deliveryId  path      string  true  "Delivery ID"
// @Success      202         {object}  response.Response{data=domain.WebhookDelivery}
// @Router       /webhooks/{id}/deliveries/{deliveryId}/redeliver [post]
// @Security     BearerAuth
func (h *WebhookHandler) Redeliver(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	deliveryID, ok := uuidParam(c, "deliveryId")
	if !ok {
		return
	}
	delivery, err := h.webhookUC.Redeliver(c.Request.Context(), id, deliveryID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusAccepted, "Delivery queued", delivery)
}
