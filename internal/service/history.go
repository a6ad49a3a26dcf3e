// 히스토리 재구성: 원시 관측 + 인터벌 저장소로부터 구간 히스토리 응답 생성
//
// 질의 시작 시점에 유효했던 상태(초기 상태)를 인터벌 저장소에서 가져와
// 히스토리가 인위적인 공백으로 시작하지 않게 함

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fleet-health/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

// observationReader - 원시 관측 로그 조회
type observationReader interface {
	ObservationsInRange(ctx context.Context, environmentName, elementID string, start, end time.Time, includeChecks bool) ([]model.Observation, error)
	CurrentStates(ctx context.Context, environmentName string) (map[string][]model.Observation, error)
}

// initialStateReader - 질의 시작 직전 유효 인터벌 조회
type initialStateReader interface {
	StateAt(ctx context.Context, environmentID, elementID string, t time.Time) (*model.StateInterval, error)
}

// masterdataReader - 환경/요소 마스터데이터 협력자
type masterdataReader interface {
	ResolveEnvironment(ctx context.Context, nameOrSubscriptionID string) (*model.EnvironmentRef, error)
	ListElements(ctx context.Context, environmentID int64) ([]model.ElementRef, error)
}

// HistoryService 구조체 정의
type HistoryService struct {
	observations observationReader
	intervals    initialStateReader
	masterdata   masterdataReader
}

// HistoryService 객체 생성
func NewHistoryService(observations observationReader, intervals initialStateReader, masterdata masterdataReader) *HistoryService {
	return &HistoryService{
		observations: observations,
		intervals:    intervals,
		masterdata:   masterdata,
	}
}

// History - 환경의 [start, end] 구간 히스토리를 신호 키 단위로 재구성
// start >= end 검증은 호출자(handler) 책임
func (s *HistoryService) History(ctx context.Context, environmentName string, start, end time.Time, includeChecks bool) (map[model.SignalKey][]model.HistoryEntry, error) {
	env, err := resolveEnvironment(ctx, s.masterdata, environmentName)
	if err != nil {
		return nil, err
	}

	observations, err := s.observations.ObservationsInRange(ctx, env.Name, "", start, end, includeChecks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	result := map[model.SignalKey][]model.HistoryEntry{}
	for _, o := range observations {
		entry := entryFromObservation(o)
		result[entry.Key()] = append(result[entry.Key()], entry)
	}

	// 초기 상태: start 직전에 열려 있던 인터벌을 요소별로 주입
	// (구간 내 관측이 전혀 없는 요소의 열린 인터벌도 이렇게 포함됨)
	elements, err := s.masterdata.ListElements(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := s.initialEntry(ctx, env.SubscriptionID, el.ElementID, start)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			result[entry.Key()] = append(result[entry.Key()], *entry)
		}
	}

	for key, entries := range result {
		result[key] = distinctSorted(entries)
	}
	return result, nil
}

// HistoryForElement - 단일 요소의 히스토리 (check/alert 구분 없이 통합)
//
// 같은 RecordID를 공유하는 관측들(동일 알람 발생의 재보고)은 하나의 대표 엔트리로 축약:
// alertName이 있는 엔트리 > checkId가 있는 엔트리 > 시간상 마지막 엔트리 순으로 선택
func (s *HistoryService) HistoryForElement(ctx context.Context, environmentName, elementID string, start, end time.Time) ([]model.HistoryEntry, error) {
	env, err := resolveEnvironment(ctx, s.masterdata, environmentName)
	if err != nil {
		return nil, err
	}

	if err := s.ensureElement(ctx, env, elementID); err != nil {
		return nil, err
	}

	observations, err := s.observations.ObservationsInRange(ctx, env.Name, elementID, start, end, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	entries := collapseByRecordID(observations)

	initial, err := s.initialEntry(ctx, env.SubscriptionID, elementID, start)
	if err != nil {
		return nil, err
	}
	if initial != nil {
		entries = append(entries, *initial)
	}

	return distinctSorted(entries), nil
}

// CurrentStates - 환경의 요소별 최신 관측 (신호 단위 최신 한 건씩)
func (s *HistoryService) CurrentStates(ctx context.Context, environmentName string) (map[string][]model.Observation, error) {
	env, err := resolveEnvironment(ctx, s.masterdata, environmentName)
	if err != nil {
		return nil, err
	}

	states, err := s.observations.CurrentStates(ctx, env.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return states, nil
}

// resolveEnvironment - 협력자 조회 결과를 서비스 에러 분류로 매핑
func resolveEnvironment(ctx context.Context, masterdata masterdataReader, nameOrSubscriptionID string) (*model.EnvironmentRef, error) {
	env, err := masterdata.ResolveEnvironment(ctx, nameOrSubscriptionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: environment %q", ErrNotFound, nameOrSubscriptionID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return env, nil
}

func (s *HistoryService) ensureElement(ctx context.Context, env *model.EnvironmentRef, elementID string) error {
	elements, err := s.masterdata.ListElements(ctx, env.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, el := range elements {
		if el.ElementID == elementID {
			return nil
		}
	}
	return fmt.Errorf("%w: element %q in environment %q", ErrNotFound, elementID, env.Name)
}

// initialEntry - start 시점에 유효했던 인터벌을 히스토리 시작 엔트리로 변환
func (s *HistoryService) initialEntry(ctx context.Context, environmentID, elementID string, start time.Time) (*model.HistoryEntry, error) {
	iv, err := s.intervals.StateAt(ctx, environmentID, elementID, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if iv == nil {
		return nil, nil
	}
	return &model.HistoryEntry{
		ElementID:       iv.ElementID,
		ComponentType:   iv.ComponentType,
		State:           iv.State,
		SourceTimestamp: start,
	}, nil
}

func entryFromObservation(o model.Observation) model.HistoryEntry {
	return model.HistoryEntry{
		ElementID:       o.ElementID,
		CheckID:         o.CheckID,
		AlertName:       o.AlertName,
		ComponentType:   o.ComponentType,
		State:           o.State,
		Description:     o.Description,
		SourceTimestamp: o.SourceTimestamp,
		RecordID:        o.RecordID,
	}
}

// collapseByRecordID - RecordID 그룹을 대표 엔트리 하나로 축약
// RecordID가 빈 관측은 축약 대상이 아니며 그대로 유지
func collapseByRecordID(observations []model.Observation) []model.HistoryEntry {
	var entries []model.HistoryEntry
	groups := map[string][]model.Observation{}
	var groupOrder []string

	for _, o := range observations {
		if o.RecordID == "" {
			entries = append(entries, entryFromObservation(o))
			continue
		}
		if _, ok := groups[o.RecordID]; !ok {
			groupOrder = append(groupOrder, o.RecordID)
		}
		groups[o.RecordID] = append(groups[o.RecordID], o)
	}

	for _, recordID := range groupOrder {
		group := groups[recordID]
		entries = append(entries, entryFromObservation(pickRepresentative(group)))
	}
	return entries
}

// pickRepresentative - 대표 선택 우선순위: alertName 보유 > checkId 보유 > 시간상 마지막
func pickRepresentative(group []model.Observation) model.Observation {
	for _, o := range group {
		if o.AlertName != "" {
			return o
		}
	}
	for _, o := range group {
		if o.CheckID != "" {
			return o
		}
	}

	last := group[0]
	for _, o := range group[1:] {
		if !o.SourceTimestamp.Before(last.SourceTimestamp) {
			last = o
		}
	}
	return last
}

// distinctSorted - sourceTimestamp 오름차순 정렬 후 완전 중복 엔트리 제거
func distinctSorted(entries []model.HistoryEntry) []model.HistoryEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SourceTimestamp.Before(entries[j].SourceTimestamp)
	})

	// time.Time의 == 비교는 위치/단조시계 차이에 민감해서 UnixNano 기반 키로 중복 판정
	type entryKey struct {
		element, check, alert, record string
		state                         model.ElementState
		ts                            int64
	}

	out := entries[:0]
	seen := map[entryKey]struct{}{}
	for _, e := range entries {
		key := entryKey{
			element: e.ElementID,
			check:   e.CheckID,
			alert:   e.AlertName,
			record:  e.RecordID,
			state:   e.State,
			ts:      e.SourceTimestamp.UnixNano(),
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
