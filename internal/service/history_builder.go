// 히스토리 빌더: 관측 배치를 원시 로그 + 인터벌 저장소 갱신으로 변환
//
// 인터벌 갱신 규칙 (요소별로 적용, Check 타입은 인터벌에서 제외):
//  1. 최근 인터벌이 없거나 닫혀 있고 새 상태가 Ok가 아니면 새 인터벌 open
//  2. 최근 인터벌이 열려 있고 상태가 다르면 close 후, 새 상태가 Ok가 아니면
//     같은 시각에 새 인터벌 open (무간격 타임라인 보장)
//  3. 최근 인터벌이 열려 있고 상태가 같으면 변화 없음 (멱등 반복)
//  4. 새 상태가 Ok면 close만 하고 Ok 인터벌은 만들지 않음
//     (Ok 구간은 기록된 인터벌의 여집합 - 테이블을 희소하게 유지)
//
// 배치 전체가 단일 트랜잭션이며, 동시성 충돌 시 배치를 1회 재시도

package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/fleet-health/backend/internal/db"
	"github.com/fleet-health/backend/internal/metrics"
	"github.com/fleet-health/backend/internal/model"
)

// batchStore - 빌더가 필요로 하는 저장소 연산 (db.Postgres가 구현)
type batchStore interface {
	WithinBatch(ctx context.Context, fn func(ops db.BatchOps) error) error
}

// environmentResolver - 환경 해석 협력자
type environmentResolver interface {
	ResolveEnvironment(ctx context.Context, nameOrSubscriptionID string) (*model.EnvironmentRef, error)
}

// HistoryBuilder 구조체 정의
type HistoryBuilder struct {
	store   batchStore
	envs    environmentResolver
	metrics *metrics.Sink
}

// HistoryBuilder 객체 생성
func NewHistoryBuilder(store batchStore, envs environmentResolver, sink *metrics.Sink) *HistoryBuilder {
	return &HistoryBuilder{
		store:   store,
		envs:    envs,
		metrics: sink,
	}
}

// BuildResult - 배치 처리 결과
type BuildResult struct {
	Accepted int
	Rejected []string
}

// ProcessBatch - 관측 배치 처리
//
// 배치 간 순서는 보장되지 않지만 같은 요소의 관측은 sourceTimestamp 순으로 처리.
// 형식이 잘못된 관측은 개별 거부되며 나머지 배치는 계속 진행.
func (b *HistoryBuilder) ProcessBatch(ctx context.Context, batch []model.Observation) (BuildResult, error) {
	var result BuildResult

	valid := make([]model.Observation, 0, len(batch))
	for i, o := range batch {
		if msg := validateObservation(o); msg != "" {
			result.Rejected = append(result.Rejected, fmt.Sprintf("observation[%d]: %s", i, msg))
			continue
		}
		valid = append(valid, o)
	}

	// 환경 이름 해석 (배치 내 캐시, nil = 미등록 환경)
	// 환경은 이름 또는 subscription ID로 들어올 수 있으므로
	// 원시 로그/그룹핑 전에 정식 이름으로 정규화 (조회는 정식 이름으로만 필터함)
	envRefs := map[string]*model.EnvironmentRef{}
	resolved := valid[:0]
	for _, o := range valid {
		if _, ok := envRefs[o.EnvironmentName]; !ok {
			ref, err := b.envs.ResolveEnvironment(ctx, o.EnvironmentName)
			if err != nil {
				ref = nil
			}
			envRefs[o.EnvironmentName] = ref
			if ref != nil {
				envRefs[ref.Name] = ref
			}
		}
		ref := envRefs[o.EnvironmentName]
		if ref == nil {
			result.Rejected = append(result.Rejected,
				fmt.Sprintf("observation element=%s: unknown environment %q", o.ElementID, o.EnvironmentName))
			continue
		}
		o.EnvironmentName = ref.Name
		resolved = append(resolved, o)
	}

	if b.metrics != nil {
		b.metrics.ObservationsRejected.Add(float64(len(result.Rejected)))
	}
	if len(resolved) == 0 {
		return result, nil
	}

	groups, order := groupByElement(resolved)

	var opened, closed int
	apply := func(ops db.BatchOps) error {
		opened, closed = 0, 0
		for _, key := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			o, c, err := b.applyElement(ctx, ops, envRefs, groups[key])
			if err != nil {
				return err
			}
			opened += o
			closed += c
		}
		return nil
	}

	err := b.store.WithinBatch(ctx, apply)
	if err != nil && db.IsConflict(err) {
		// 동시 배치가 같은 요소의 인터벌을 먼저 만졌음 - 배치 전체를 1회 재시도
		log.Printf("[HistoryBuilder] Batch conflict, retrying: %v", err)
		if b.metrics != nil {
			b.metrics.BatchRetries.Inc()
		}
		err = b.store.WithinBatch(ctx, apply)
	}
	if err != nil {
		if db.IsConflict(err) {
			return result, fmt.Errorf("%w: interval update conflict persisted after retry: %v", ErrConflict, err)
		}
		return result, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	result.Accepted = len(resolved)
	if b.metrics != nil {
		b.metrics.ObservationsIngested.Add(float64(result.Accepted))
		b.metrics.IntervalsOpened.Add(float64(opened))
		b.metrics.IntervalsClosed.Add(float64(closed))
	}
	return result, nil
}

// applyElement - 한 요소의 관측들을 sourceTimestamp 순으로 적용
func (b *HistoryBuilder) applyElement(ctx context.Context, ops db.BatchOps, envRefs map[string]*model.EnvironmentRef, group []model.Observation) (opened, closed int, err error) {
	env := envRefs[group[0].EnvironmentName]
	environmentID := env.SubscriptionID

	// 처음 보는 요소는 마스터데이터에 자동 등록 (히스토리/SLA 조회의 요소 열거에 사용)
	if err := ops.EnsureElement(ctx, env.ID, group[0].ElementID, group[0].ComponentType); err != nil {
		return 0, 0, err
	}

	// 현재 인터벌은 트랜잭션 안에서 한 번만 읽고 (행 잠금)
	// 이후에는 로컬에서 추적하여 불필요한 재조회를 피함
	var current *model.StateInterval
	var loaded bool

	for _, o := range group {
		if err := ops.AppendObservation(ctx, o); err != nil {
			return opened, closed, err
		}

		// Check 타입은 원시 로그에만 남기고 인터벌 히스토리에서 제외 (고정 정책)
		if o.IsCheck() {
			continue
		}

		if !loaded {
			current, err = ops.LatestInterval(ctx, environmentID, o.ElementID)
			if err != nil {
				return opened, closed, err
			}
			loaded = true
		}

		openNew := func() error {
			iv := model.StateInterval{
				ElementID:     o.ElementID,
				EnvironmentID: environmentID,
				ComponentType: o.ComponentType,
				State:         o.State,
				StartDate:     o.SourceTimestamp,
			}
			id, err := ops.OpenInterval(ctx, iv)
			if err != nil {
				return err
			}
			iv.ID = id
			current = &iv
			opened++
			return nil
		}

		switch {
		case current == nil || !current.Open():
			// 규칙 1: 최근 인터벌이 없거나 닫힘
			if o.State != model.StateOk {
				if err := openNew(); err != nil {
					return opened, closed, err
				}
			}

		case current.State == o.State:
			// 규칙 3: 멱등 반복 - 변화 없음

		default:
			// 규칙 2/4: 열린 인터벌을 닫고, Ok가 아니면 같은 시각에 새로 open
			end := o.SourceTimestamp
			if err := ops.CloseInterval(ctx, current.ID, end); err != nil {
				return opened, closed, err
			}
			cur := *current
			cur.EndDate = &end
			current = &cur
			closed++

			if o.State != model.StateOk {
				if err := openNew(); err != nil {
					return opened, closed, err
				}
			}
		}
	}
	return opened, closed, nil
}

// validateObservation - 개별 관측 검증, 거부 사유를 반환 (빈 문자열이면 유효)
func validateObservation(o model.Observation) string {
	if o.ElementID == "" {
		return "missing elementId"
	}
	if o.State == "" {
		return "missing state"
	}
	if !o.State.Valid() {
		return fmt.Sprintf("unknown state %q", o.State)
	}
	if o.EnvironmentName == "" {
		return "missing environmentName"
	}
	if o.ComponentType != "" && !o.ComponentType.Valid() {
		return fmt.Sprintf("unknown componentType %q", o.ComponentType)
	}
	if o.SourceTimestamp.IsZero() {
		return "missing sourceTimestamp"
	}
	return ""
}

// elementGroupKey - 배치 그룹핑 키
// 같은 elementId가 여러 환경에 존재할 수 있으므로 환경까지 포함해서 묶음
type elementGroupKey struct {
	environmentName string
	elementID       string
}

// groupByElement - (환경, 요소)별 그룹핑 + 그룹 내 sourceTimestamp 정렬
// 그룹 순회 순서는 (환경, 요소) 사전순으로 고정 (교착 회피, 재현 가능성)
func groupByElement(batch []model.Observation) (map[elementGroupKey][]model.Observation, []elementGroupKey) {
	groups := map[elementGroupKey][]model.Observation{}
	for _, o := range batch {
		key := elementGroupKey{environmentName: o.EnvironmentName, elementID: o.ElementID}
		groups[key] = append(groups[key], o)
	}

	order := make([]elementGroupKey, 0, len(groups))
	for key, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].SourceTimestamp.Before(group[j].SourceTimestamp)
		})
		groups[key] = group
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].environmentName != order[j].environmentName {
			return order[i].environmentName < order[j].environmentName
		}
		return order[i].elementID < order[j].elementID
	})
	return groups, order
}

// Normalize - 수집 전 관측 기본값 보정
// 빈 recordId는 새 UUID로, 빈 타임스탬프는 now로 채움
func Normalize(batch []model.Observation, now time.Time, newID func() string) []model.Observation {
	out := make([]model.Observation, len(batch))
	for i, o := range batch {
		if o.RecordID == "" {
			o.RecordID = newID()
		}
		if o.SourceTimestamp.IsZero() {
			o.SourceTimestamp = now
		}
		if o.GeneratedTimestamp.IsZero() {
			o.GeneratedTimestamp = now
		}
		if o.ComponentType == "" {
			o.ComponentType = model.ComponentTypeComponent
		}
		out[i] = o
	}
	return out
}
