package ws

import (
	"encoding/json"
	"sync"

	"mchat_backend/internal/metrics"
	chatsvc "mchat_backend/internal/services/chat"
	"mchat_backend/pkg/apperrors"

	"github.com/pion/webrtc/v4"
)

// =======================
// Запросы сигналинга
// =======================

type CallStartRequest struct {
	TargetUserID string                    `json:"target_user_id" validate:"required,uuid"`
	CallType     string                    `json:"call_type" validate:"required,oneof=audio video"`
	Offer        webrtc.SessionDescription `json:"offer"`
}

type CallAnswerRequest struct {
	TargetUserID string                    `json:"target_user_id" validate:"required,uuid"`
	Answer       webrtc.SessionDescription `json:"answer"`
}

type CallICERequest struct {
	TargetUserID string                  `json:"target_user_id" validate:"required,uuid"`
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
}

type CallQualityRequest struct {
	TargetUserID string          `json:"target_user_id" validate:"required,uuid"`
	Quality      string          `json:"quality" validate:"required,oneof=excellent good fair poor"`
	Stats        json.RawMessage `json:"stats,omitempty"`
}

type CallHangupRequest struct {
	TargetUserID string `json:"target_user_id" validate:"required,uuid"`
	Reason       string `json:"reason" validate:"max=64"`
}

// CallSignalPayload - то, что получает собеседник
type CallSignalPayload struct {
	FromUserID string                     `json:"from_user_id"`
	FromName   string                     `json:"from_name,omitempty"`
	CallType   string                     `json:"call_type,omitempty"`
	SDP        *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate  *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Quality    string                     `json:"quality,omitempty"`
	Stats      json.RawMessage            `json:"stats,omitempty"`
	Reason     string                     `json:"reason,omitempty"`
}

const ReasonDisconnected = "disconnected"

// callLeg - сторона звонка: собеседник и соединение, которое ведет звонок.
// connID пуст, пока вызываемый не ответил.
type callLeg struct {
	partnerID string
	connID    string
}

// CallRelay - ретранслятор сигналинга. Не больше одного звонка на пользователя.
// Медиа идет p2p, сервер ничего не хранит.
type CallRelay struct {
	mu   sync.Mutex
	legs map[string]*callLeg

	registry *Registry
	emitter  chatsvc.Emitter
}

func NewCallRelay(registry *Registry, emitter chatsvc.Emitter) *CallRelay {
	return &CallRelay{
		legs:     make(map[string]*callLeg),
		registry: registry,
		emitter:  emitter,
	}
}

func (r *CallRelay) send(userID, event string, payload CallSignalPayload) {
	metrics.CallSignals.WithLabelValues(event).Inc()
	r.emitter.Emit(chatsvc.Target{Users: []string{userID}}, event, payload)
}

// validateSDP проверяет тип и разбирает SDP через pion
func validateSDP(desc webrtc.SessionDescription, want webrtc.SDPType) error {
	if desc.Type != want || desc.SDP == "" {
		return apperrors.ErrInvalidSignal
	}
	if _, err := desc.Unmarshal(); err != nil {
		return apperrors.ErrInvalidSignal.WithError(err)
	}
	return nil
}

// pairedLocked - есть ли живая пара from <-> to
func (r *CallRelay) pairedLocked(from, to string) bool {
	a, b := r.legs[from], r.legs[to]
	return a != nil && b != nil && a.partnerID == to && b.partnerID == from
}

// Start - исходящий звонок (offer). Звонок считается активным с момента вызова.
func (r *CallRelay) Start(fromUserID, fromName, connID string, req CallStartRequest) error {
	if req.TargetUserID == fromUserID {
		return apperrors.ErrInvalidSignal
	}
	if err := validateSDP(req.Offer, webrtc.SDPTypeOffer); err != nil {
		return err
	}
	if !r.registry.IsOnline(req.TargetUserID) {
		return apperrors.ErrCallOffline
	}

	r.mu.Lock()
	if r.legs[fromUserID] != nil || r.legs[req.TargetUserID] != nil {
		r.mu.Unlock()
		return apperrors.ErrCallBusy
	}
	r.legs[fromUserID] = &callLeg{partnerID: req.TargetUserID, connID: connID}
	r.legs[req.TargetUserID] = &callLeg{partnerID: fromUserID}
	r.mu.Unlock()

	offer := req.Offer
	r.send(req.TargetUserID, EventCallIncoming, CallSignalPayload{
		FromUserID: fromUserID,
		FromName:   fromName,
		CallType:   req.CallType,
		SDP:        &offer,
	})
	return nil
}

// Answer - ответ вызываемого; привязывает звонок к отвечающему соединению
func (r *CallRelay) Answer(fromUserID, connID string, req CallAnswerRequest) error {
	if err := validateSDP(req.Answer, webrtc.SDPTypeAnswer); err != nil {
		return err
	}

	r.mu.Lock()
	if !r.pairedLocked(fromUserID, req.TargetUserID) {
		r.mu.Unlock()
		return apperrors.ErrNoActiveCall
	}
	r.legs[fromUserID].connID = connID
	r.mu.Unlock()

	answer := req.Answer
	r.send(req.TargetUserID, EventCallAnswer, CallSignalPayload{
		FromUserID: fromUserID,
		SDP:        &answer,
	})
	return nil
}

func (r *CallRelay) ICE(fromUserID string, req CallICERequest) error {
	if req.Candidate.Candidate == "" {
		return apperrors.ErrInvalidSignal
	}
	if !r.isPaired(fromUserID, req.TargetUserID) {
		return apperrors.ErrNoActiveCall
	}
	candidate := req.Candidate
	r.send(req.TargetUserID, EventCallICECandidate, CallSignalPayload{
		FromUserID: fromUserID,
		Candidate:  &candidate,
	})
	return nil
}

func (r *CallRelay) Quality(fromUserID string, req CallQualityRequest) error {
	if !r.isPaired(fromUserID, req.TargetUserID) {
		return apperrors.ErrNoActiveCall
	}
	r.send(req.TargetUserID, EventCallQualityUpdate, CallSignalPayload{
		FromUserID: fromUserID,
		Quality:    req.Quality,
		Stats:      req.Stats,
	})
	return nil
}

func (r *CallRelay) Reject(fromUserID string, req CallHangupRequest) error {
	return r.hangup(fromUserID, req.TargetUserID, EventCallRejected, req.Reason)
}

func (r *CallRelay) End(fromUserID string, req CallHangupRequest) error {
	return r.hangup(fromUserID, req.TargetUserID, EventCallEnd, req.Reason)
}

// Disconnect - закрылось соединение пользователя. Если оно вело звонок
// (или это последнее соединение, а звонок еще не привязан), звонок
// завершается тем же путем, что и явный call_end.
func (r *CallRelay) Disconnect(userID, connID string, lastConn bool) {
	r.mu.Lock()
	leg := r.legs[userID]
	owns := leg != nil && (leg.connID == connID || (leg.connID == "" && lastConn))
	r.mu.Unlock()

	if !owns {
		return
	}
	_ = r.hangup(userID, leg.partnerID, EventCallEnd, ReasonDisconnected)
}

// hangup снимает пару и один раз уведомляет собеседника.
// После этого любые сигналы по паре отвергаются.
func (r *CallRelay) hangup(fromUserID, targetUserID, event, reason string) error {
	r.mu.Lock()
	if !r.pairedLocked(fromUserID, targetUserID) {
		r.mu.Unlock()
		return apperrors.ErrNoActiveCall
	}
	delete(r.legs, fromUserID)
	delete(r.legs, targetUserID)
	r.mu.Unlock()

	r.send(targetUserID, event, CallSignalPayload{FromUserID: fromUserID, Reason: reason})
	return nil
}

func (r *CallRelay) isPaired(from, to string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pairedLocked(from, to)
}

// PartnerOf - текущий собеседник пользователя
func (r *CallRelay) PartnerOf(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if leg := r.legs[userID]; leg != nil {
		return leg.partnerID, true
	}
	return "", false
}
