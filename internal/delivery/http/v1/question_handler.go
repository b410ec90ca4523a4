package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type QuestionHandler struct {
	questionUC domain.QuestionUsecase
}

func NewQuestionHandler(protected *gin.RouterGroup, questionUC domain.QuestionUsecase, editors gin.HandlerFunc) {
	handler := &QuestionHandler{questionUC: questionUC}

	questions := protected.Group("/campaigns/:id/questions")
	{
		questions.GET("", handler.List)
		questions.POST("", editors, handler.Create)
		questions.POST("/generate", editors, handler.Generate)
		questions.PUT("/order", editors, handler.Reorder)
		questions.PUT("/:questionId", editors, handler.Update)
		questions.DELETE("/:questionId", editors, handler.Delete)
	}
}

// List godoc
// @Summary      List a campaign's questions
// @Tags         questions
// @Produce      json
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  response.Response{data=[]domain.Question}
// @Router       /campaigns/{id}/questions [get]
// @Security     BearerAuth
func (h *QuestionHandler) List(c *gin.Context) {
	campaignID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	questions, err := h.questionUC.List(c.Request.Context(), campaignID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Questions", questions)
}

// Generate godoc
// @Summary      Generate questions with AI
// @Description  Replaces the campaign's question set. Combo campaigns get MCQ, coding and behavioral batches. With async=true the job is queued and 202 is returned.
// @Tags         questions
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Campaign ID"
// @Param        request  body      domain.GenerateQuestionsRequest  false "Overrides"
// @Success      200      {object}  response.Response{data=[]domain.Question}
// @Success      202      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /campaigns/{id}/questions/generate [post]
// @Security     BearerAuth
func (h *QuestionHandler) Generate(c *gin.Context) {
	campaignID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.GenerateQuestionsRequest
	// an empty body means "use the campaign settings"
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	questions, err := h.questionUC.Generate(c.Request.Context(), campaignID, req)
	if err != nil {
		c.Error(err)
		return
	}
	if req.Async {
		response.Success(c, http.StatusAccepted, "Question generation queued", nil)
		return
	}
	response.Success(c, http.StatusOK, "Questions generated", questions)
}

// Create godoc
// @Summary      Add a question manually
// @Tags         questions
// @Accept       json
// @Produce      json
// @Param        id        path      string                true  "Campaign ID"
// @Param        question  body      domain.QuestionInput  true  "Question"
// @Success      201       {object}  response.Response{data=domain.Question}
// @Failure      400       {object}  response.Response
// @Router       /campaigns/{id}/questions [post]
// @Security     BearerAuth
func (h *QuestionHandler) Create(c *gin.Context) {
	campaignID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input domain.QuestionInput
	if !bindJSON(c, &input) {
		return
	}
	question, err := h.questionUC.Create(c.Request.Context(), campaignID, input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Question created", question)
}

// Update godoc
// @Summary      Update a question
// @Tags         questions
// @Accept       json
// @Produce      json
// @Param        id          path      string                true  "Campaign ID"
// @Param        questionId  path      string                true  "Question ID"
// @Param        question    body      domain.QuestionInput  true  "Question"
// @Success      200         {object}  response.Response{data=domain.Question}
// @Router       /campaigns/{id}/questions/{questionId} [put]
// @Security     BearerAuth
func (h *QuestionHandler) Update(c *gin.Context) {
	campaignID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	id, ok := uuidParam(c, "questionId")
	if !ok {
		return
	}
	var input domain.QuestionInput
	if !bindJSON(c, &input) {
		return
	}
	question, err := h.questionUC.Update(c.Request.Context(), campaignID, id, input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Question updated", question)
}

// Delete godoc
// @Summary      Delete a question
// @Tags         questions
// @Produce      json
// @Param        id          path      string  true  "Campaign ID"
// @Param        questionId  path      string  true  "Question ID"
// @Success      200         {object}  response.Response
// @Router       /campaigns/{id}/questions/{questionId} [delete]
// @Security     BearerAuth
func (h *QuestionHandler) Delete(c *gin.Context) {
	campaignID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	id, ok := uuidParam(c, "questionId")
	if !ok {
		return
	}
	if err := h.questionUC.Delete(c.Request.Context(), campaignID, id); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Question deleted", nil)
}

// Reorder godoc
// @Summary      Reorder questions
// @Description  question_ids must list every question of the campaign exactly once
// @Tags         questions
// @Accept       json
// @Produce      json
// @Param        id     path      string                          true  "Campaign ID"
// @Param        order  body      domain.ReorderQuestionsRequest  true  "New order"
// @Success      200    {object}  response.Response{data=[]domain.Question}
// @Router       /campaigns/{id}/questions/order [put]
// @Security     BearerAuth
func (h *QuestionHandler) Reorder(c *gin.Context) {
	campaignID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.ReorderQuestionsRequest
	if !bindJSON(c, &req) {
		return
	}
	questions, err := h.questionUC.Reorder(c.Request.Context(), campaignID, req.QuestionIDs)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Questions reordered", questions)
}
