// Copyright (c) 2019 Perlin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package api

import (
	"encoding/base64"
	"math/big"
	"net/http"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/conf"
	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"
)

var (
	_ log.JSONObject = (*groupRequest)(nil)
	_ log.JSONObject = (*misbehaviorRequest)(nil)
	_ log.JSONObject = (*eligibilityRequest)(nil)

	_ log.MarshalableArena = (*MsgResponse)(nil)
	_ log.MarshalableArena = (*ErrResponse)(nil)
	_ log.MarshalableArena = (*GroupResponse)(nil)
	_ log.MarshalableArena = (*PoolStatus)(nil)
	_ log.MarshalableArena = (*OperatorStatus)(nil)
)

type groupRequest struct {
	Seed      sortition.Seed
	Size      int
	MinWeight uint64
}

func (r *groupRequest) bind(parser *fastjson.Parser, body []byte) error {
	v, err := parser.ParseBytes(body)
	if err != nil {
		return err
	}

	return r.UnmarshalValue(v)
}

func (r *groupRequest) UnmarshalValue(v *fastjson.Value) error {
	seed, err := valueString(v, "seed")
	if err != nil {
		return err
	}

	if r.Seed, err = sortition.ParseSeed(seed); err != nil {
		return err
	}

	r.Size = conf.GetGroupSize()

	if v.Exists("size") {
		if r.Size, err = v.Get("size").Int(); err != nil {
			return errors.Wrap(err, "size must be an integer")
		}
	}

	if v.Exists("min_weight") {
		if r.MinWeight, err = v.Get("min_weight").Uint64(); err != nil {
			return errors.Wrap(err, "min_weight must be an unsigned integer")
		}
	}

	return nil
}

func (r *groupRequest) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	o := arena.NewObject()

	arenaSets(arena, o,
		"seed", r.Seed,
		"size", r.Size,
		"min_weight", r.MinWeight,
	)

	return o.MarshalTo(nil), nil
}

func (r *groupRequest) MarshalEvent(ev *zerolog.Event) {
	ev.Hex("seed", r.Seed[:])
	ev.Int("size", r.Size)
	ev.Uint64("min_weight", r.MinWeight)

	ev.Msg("Group request")
}

type misbehaviorRequest struct {
	ID       sortition.ID
	Seed     sortition.Seed
	Evidence sortition.Evidence
}

func (r *misbehaviorRequest) bind(parser *fastjson.Parser, body []byte) error {
	v, err := parser.ParseBytes(body)
	if err != nil {
		return err
	}

	return r.UnmarshalValue(v)
}

func (r *misbehaviorRequest) UnmarshalValue(v *fastjson.Value) error {
	id, err := valueString(v, "id")
	if err != nil {
		return err
	}

	if r.ID, err = sortition.ParseID(id); err != nil {
		return err
	}

	seed, err := valueString(v, "seed")
	if err != nil {
		return err
	}

	if r.Seed, err = sortition.ParseSeed(seed); err != nil {
		return err
	}

	kind, err := valueString(v, "kind")
	if err != nil {
		return err
	}

	if r.Evidence.Kind, err = sortition.ParseEvidenceKind(kind); err != nil {
		return err
	}

	if v.Exists("evidence") {
		raw, err := valueString(v, "evidence")
		if err != nil {
			return err
		}

		if r.Evidence.Blob, err = base64.StdEncoding.DecodeString(raw); err != nil {
			return errors.Wrap(err, "evidence must be base64")
		}
	}

	return nil
}

func (r *misbehaviorRequest) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	o := arena.NewObject()

	arenaSets(arena, o,
		"id", r.ID,
		"seed", r.Seed,
		"kind", r.Evidence.Kind.String(),
		"evidence", base64.StdEncoding.EncodeToString(r.Evidence.Blob),
	)

	return o.MarshalTo(nil), nil
}

// MarshalEvent logs only the length of the evidence.
func (r *misbehaviorRequest) MarshalEvent(ev *zerolog.Event) {
	ev.Hex("id", r.ID[:])
	ev.Hex("seed", r.Seed[:])
	ev.Str("kind", r.Evidence.Kind.String())
	ev.Int("evidence_len", len(r.Evidence.Blob))

	ev.Msg("Misbehavior report")
}

type eligibilityRequest struct {
	ID     sortition.ID
	Stake  *big.Int
	Bonded bool
}

func (r *eligibilityRequest) bind(parser *fastjson.Parser, body []byte) error {
	v, err := parser.ParseBytes(body)
	if err != nil {
		return err
	}

	return r.UnmarshalValue(v)
}

func (r *eligibilityRequest) UnmarshalValue(v *fastjson.Value) error {
	id, err := valueString(v, "id")
	if err != nil {
		return err
	}

	if r.ID, err = sortition.ParseID(id); err != nil {
		return err
	}

	stake, err := valueString(v, "stake")
	if err != nil {
		return err
	}

	var ok bool
	if r.Stake, ok = new(big.Int).SetString(stake, 10); !ok || r.Stake.Sign() < 0 {
		return errors.Errorf("stake must be a non-negative decimal integer, got %q", stake)
	}

	bonded := v.Get("bonded")
	if bonded == nil {
		return errors.New("bonded is missing")
	}

	if r.Bonded, err = bonded.Bool(); err != nil {
		return errors.Wrap(err, "bonded must be a boolean")
	}

	return nil
}

func (r *eligibilityRequest) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	o := arena.NewObject()

	arenaSets(arena, o,
		"id", r.ID,
		"stake", r.Stake.String(),
		"bonded", r.Bonded,
	)

	return o.MarshalTo(nil), nil
}

func (r *eligibilityRequest) MarshalEvent(ev *zerolog.Event) {
	ev.Hex("id", r.ID[:])
	ev.Str("stake", r.Stake.String())
	ev.Bool("bonded", r.Bonded)

	ev.Msg("Eligibility update")
}

type MsgResponse struct {
	Message string `json:"msg"`
}

func (s *MsgResponse) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	o := arena.NewObject()
	o.Set("msg", arena.NewString(s.Message))

	return o.MarshalTo(nil), nil
}

type GroupResponse struct {
	group *sortition.Group
}

func (s *GroupResponse) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	if s.group == nil {
		return nil, errors.New("insufficient fields specified")
	}

	o := arena.NewObject()

	members := arena.NewArray()
	for i, id := range s.group.Members() {
		members.SetArrayItem(i, arenaNewHex(arena, id[:]))
	}

	arenaSets(arena, o,
		"seed", s.group.Seed(),
		"members", members,
	)

	return o.MarshalTo(nil), nil
}

type PoolStatus struct {
	TotalWeight uint64 `json:"total_weight"`
	Len         int    `json:"len"`
	Eligible    int    `json:"eligible"`
	Capacity    int    `json:"capacity"`
	Locked      bool   `json:"locked"`

	// DeferredBans counts bans reported while locked.
	DeferredBans int `json:"deferred_bans"`
}

func (s *PoolStatus) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	o := arena.NewObject()

	arenaSets(arena, o,
		"total_weight", s.TotalWeight,
		"len", s.Len,
		"eligible", s.Eligible,
		"capacity", s.Capacity,
		"locked", s.Locked,
		"deferred_bans", s.DeferredBans,
	)

	return o.MarshalTo(nil), nil
}

type OperatorStatus struct {
	ID       sortition.ID `json:"id"`
	Weight   uint64       `json:"weight"`
	Stake    string       `json:"stake"`
	State    string       `json:"state"`
	Eligible bool         `json:"eligible"`
	Banned   bool         `json:"banned"`
	InPool   bool         `json:"in_pool"`
}

func (s *OperatorStatus) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	o := arena.NewObject()

	arenaSets(arena, o,
		"id", s.ID,
		"weight", s.Weight,
		"stake", s.Stake,
		"state", s.State,
		"eligible", s.Eligible,
		"banned", s.Banned,
		"in_pool", s.InPool,
	)

	return o.MarshalTo(nil), nil
}

type ErrResponse struct {
	Err            error `json:"error,omitempty"` // low-level runtime error
	HTTPStatusCode int   `json:"status"`          // http response status code

	insufficient *sortition.InsufficientPoolError
}

func (e *ErrResponse) MarshalArena(arena *fastjson.Arena) ([]byte, error) {
	o := arena.NewObject()

	o.Set("status", arena.NewString(http.StatusText(e.HTTPStatusCode)))

	if e.Err != nil {
		o.Set("error", arena.NewString(e.Err.Error()))
	}

	if e.insufficient != nil {
		arenaSets(arena, o,
			"total_weight", e.insufficient.TotalWeight,
			"eligible", e.insufficient.Eligible,
			"requested", e.insufficient.Requested,
		)
	}

	return o.MarshalTo(nil), nil
}

func ErrBadRequest(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
	}
}

func ErrUnauthorized(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
	}
}

func ErrNotFound(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
	}
}

func ErrConflict(err error) *ErrResponse {
	resp := &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
	}

	if insufficient, ok := errors.Cause(err).(*sortition.InsufficientPoolError); ok {
		resp.insufficient = insufficient
	}

	return resp
}

func ErrTooManyRequests(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusTooManyRequests,
	}
}

func ErrInternal(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
	}
}

func valueString(v *fastjson.Value, key string) (string, error) {
	field := v.Get(key)
	if field == nil {
		return "", errors.Errorf("%s is missing", key)
	}

	buf, err := field.StringBytes()
	if err != nil {
		return "", errors.Wrapf(err, "%s must be a string", key)
	}

	return string(buf), nil
}
