package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/flow"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/parsers"
	logx "github.com/FinMentor-core-poc-v1/server/pkg/logger"
)

// chatRequest carries one turn of user input. Pointer fields distinguish
// "absent" from zero values: an absent field replays the current prompt.
type chatRequest struct {
	ConversationID   string   `json:"conversation_id,omitempty"`
	Name             *string  `json:"name,omitempty"`
	Salary           *float64 `json:"salary,omitempty"`
	FollowupQuestion *string  `json:"followup_question,omitempty"`
}

type chatResponse struct {
	Messages          []*schema.Message `json:"messages"`
	Step              model.Step        `json:"step"`
	ConversationID    string            `json:"conversation_id"`
	ConversationEnded bool              `json:"conversation_ended,omitempty"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logx.Warn().Err(err).Msg("chatHandler: failed to decode JSON")
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	unlock := s.lockConversation(conversationID)
	defer unlock()

	ctx := r.Context()

	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		writeError(w, err)
		return
	}

	if conv == nil {
		// Fresh conversation: greet and ask for the name.
		conv = model.NewConversation(conversationID)
		s.machine.EnterAskName(conv)
		if err := s.store.Save(ctx, conv); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Messages:       conv.Messages,
			Step:           conv.Step,
			ConversationID: conversationID,
		})
		return
	}

	switch conv.Step {
	case model.StepAskName:
		s.handleNameTurn(w, r, conv, req)
	case model.StepAskSalary:
		s.handleSalaryTurn(w, r, conv, req)
	case model.StepFollowup:
		s.handleFollowupTurn(w, r, conv, req)
	case model.StepConversationEnded:
		// Should not normally be stored; report ended and clean up.
		s.endConversation(w, r, conv)
	default:
		// Corrupt step value: the only recovery is starting over.
		logx.Warn().Str("conversation_id", conversationID).Str("step", string(conv.Step)).
			Msg("chatHandler: corrupt conversation state, discarding")
		if err := s.store.Delete(ctx, conversationID); err != nil {
			writeError(w, err)
			return
		}
		writeErrorMessage(w, http.StatusBadRequest, "Invalid conversation state. Please start a new conversation.")
	}
}

func (s *Server) handleNameTurn(w http.ResponseWriter, r *http.Request, conv *model.Conversation, req chatRequest) {
	if req.Name == nil {
		s.replay(w, conv)
		return
	}

	name := parsers.ExtractName(*req.Name)
	if name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Please tell me your name")
		return
	}

	conv.Name = name
	if err := s.machine.EnterAskSalary(conv); err != nil {
		writeError(w, err)
		return
	}
	s.saveAndRespond(w, r, conv)
}

func (s *Server) handleSalaryTurn(w http.ResponseWriter, r *http.Request, conv *model.Conversation, req chatRequest) {
	if req.Salary == nil {
		s.replay(w, conv)
		return
	}
	if *req.Salary <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "Please provide a valid positive salary amount")
		return
	}

	conv.Salary = *req.Salary
	if err := s.machine.EnterAdvice(r.Context(), conv); err != nil {
		writeError(w, err)
		return
	}
	s.saveAndRespond(w, r, conv)
}

func (s *Server) handleFollowupTurn(w http.ResponseWriter, r *http.Request, conv *model.Conversation, req chatRequest) {
	if req.FollowupQuestion == nil || strings.TrimSpace(*req.FollowupQuestion) == "" {
		s.replay(w, conv)
		return
	}

	conv.FollowupQuestion = *req.FollowupQuestion
	if err := s.machine.HandleFollowup(r.Context(), conv); err != nil {
		writeError(w, err)
		return
	}

	if conv.Step.Terminal() {
		s.endConversation(w, r, conv)
		return
	}
	s.saveAndRespond(w, r, conv)
}

// endConversation relays the final transcript and discards the stored state.
func (s *Server) endConversation(w http.ResponseWriter, r *http.Request, conv *model.Conversation) {
	if err := s.store.Delete(r.Context(), conv.ID); err != nil {
		writeError(w, err)
		return
	}
	logx.Info().Str("conversation_id", conv.ID).Msg("Conversation ended")
	writeJSON(w, http.StatusOK, chatResponse{
		Messages:          conv.Messages,
		Step:              model.StepConversationEnded,
		ConversationID:    conv.ID,
		ConversationEnded: true,
	})
}

// replay returns the accumulated transcript without transitioning, for
// requests that do not carry the input the current step expects.
func (s *Server) replay(w http.ResponseWriter, conv *model.Conversation) {
	writeJSON(w, http.StatusOK, chatResponse{
		Messages:       conv.Messages,
		Step:           conv.Step,
		ConversationID: conv.ID,
	})
}

func (s *Server) saveAndRespond(w http.ResponseWriter, r *http.Request, conv *model.Conversation) {
	if err := s.store.Save(r.Context(), conv); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Messages:       conv.Messages,
		Step:           conv.Step,
		ConversationID: conv.ID,
	})
}

// statusForFlowError maps flow errors onto HTTP statuses. Precondition
// violations surface as 500s because they indicate handler bugs, not bad
// user input.
func statusForFlowError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, flow.ErrCorruptState):
		return http.StatusBadRequest, "Invalid conversation state. Please start a new conversation.", true
	case errors.Is(err, flow.ErrConversationEnded):
		return http.StatusConflict, "Conversation already finished. Please start a new conversation.", true
	case errors.Is(err, flow.ErrMissingName),
		errors.Is(err, flow.ErrMissingSalary),
		errors.Is(err, flow.ErrMissingQuestion):
		return http.StatusInternalServerError, "Conversation is missing required input", true
	default:
		return 0, "", false
	}
}
