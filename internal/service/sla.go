// SLA 집계: 질의 구간과 겹치는 인터벌을 걷어 일별 가용성 수치 계산
//
// 읽기 전용 컴포넌트 - 인터벌 저장소를 절대 변경하지 않으며
// 히스토리 빌더의 동시 쓰기와 안전하게 병행 호출 가능.
// 배포 윈도우에 덮인 시간은 SLA 분모에서 제외 (업타임도 다운타임도 아님)

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fleet-health/backend/internal/metrics"
	"github.com/fleet-health/backend/internal/model"
)

// intervalReader - 인터벌 저장소 조회 (읽기 전용)
type intervalReader interface {
	OverlappingIntervals(ctx context.Context, environmentID, elementID string, start, end time.Time) ([]model.StateInterval, error)
}

// windowReader - 배포 윈도우 조회
type windowReader interface {
	WindowsForEnvironment(ctx context.Context, environmentSubscriptionID string, start, end time.Time) ([]model.DeploymentWindow, error)
}

// SlaService 구조체 정의
type SlaService struct {
	intervals  intervalReader
	windows    windowReader
	masterdata masterdataReader
	metrics    *metrics.Sink

	// now: 열린 인터벌의 종료 시각 계산용 (테스트에서 고정 가능)
	now func() time.Time
}

// SlaService 객체 생성
func NewSlaService(intervals intervalReader, windows windowReader, masterdata masterdataReader, sink *metrics.Sink) *SlaService {
	return &SlaService{
		intervals:  intervals,
		windows:    windows,
		masterdata: masterdata,
		metrics:    sink,
		now:        time.Now,
	}
}

// ComputeSla - 환경(또는 단일 요소)의 [start, end] 구간 SLA 계산
// elementID가 비어 있으면 환경의 모든 요소를 집계 (Check 타입 제외)
func (s *SlaService) ComputeSla(ctx context.Context, environmentSubscriptionID, elementID string, start, end time.Time) (*model.SlaReport, error) {
	env, err := resolveEnvironment(ctx, s.masterdata, environmentSubscriptionID)
	if err != nil {
		return nil, err
	}

	elements, err := s.targetElements(ctx, env, elementID)
	if err != nil {
		return nil, err
	}

	windows, err := s.windows.WindowsForEnvironment(ctx, env.SubscriptionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	report := &model.SlaReport{
		EnvironmentSubscriptionID: env.SubscriptionID,
		StartDate:                 start,
		EndDate:                   end,
		Elements:                  map[string]model.ElementSla{},
	}

	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		intervals, err := s.intervals.OverlappingIntervals(ctx, env.SubscriptionID, el, start, end)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}

		elementSla, err := s.aggregateElement(ctx, el, intervals, windows, start, end)
		if err != nil {
			return nil, err
		}
		report.Elements[el] = elementSla
	}

	if s.metrics != nil {
		s.metrics.SlaComputations.Inc()
	}
	return report, nil
}

// targetElements - 집계 대상 요소 결정; Check 타입은 SLA 대상에서 제외
func (s *SlaService) targetElements(ctx context.Context, env *model.EnvironmentRef, elementID string) ([]string, error) {
	elements, err := s.masterdata.ListElements(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var targets []string
	for _, el := range elements {
		if el.Type == model.ComponentTypeCheck {
			continue
		}
		if elementID != "" && el.ElementID != elementID {
			continue
		}
		targets = append(targets, el.ElementID)
	}

	if elementID != "" && len(targets) == 0 {
		return nil, fmt.Errorf("%w: element %q in environment %q", ErrNotFound, elementID, env.Name)
	}
	return targets, nil
}

// span - 닫힌 반개구간 [start, end) 계산용 내부 표현
type span struct {
	start, end time.Time
}

func (sp span) seconds() float64 {
	return sp.end.Sub(sp.start).Seconds()
}

// aggregateElement - 한 요소의 일별 SLA 계산
func (s *SlaService) aggregateElement(ctx context.Context, elementID string, intervals []model.StateInterval, windows []model.DeploymentWindow, start, end time.Time) (model.ElementSla, error) {
	now := s.now()

	maintenance := mergeSpans(maintenanceSpans(elementID, windows, start, end))

	result := model.ElementSla{
		ElementID: elementID,
		StartDate: start,
		EndDate:   end,
	}

	for dayStart := start; dayStart.Before(end); {
		if err := ctx.Err(); err != nil {
			return model.ElementSla{}, err
		}

		dayEnd := nextUTCMidnight(dayStart)
		if dayEnd.After(end) {
			dayEnd = end
		}
		daySpan := span{start: dayStart, end: dayEnd}

		day := model.DailySla{
			Date:          time.Date(dayStart.UTC().Year(), dayStart.UTC().Month(), dayStart.UTC().Day(), 0, 0, 0, 0, time.UTC),
			WindowSeconds: daySpan.seconds(),
		}

		for _, m := range maintenance {
			day.MaintenanceSeconds += overlapSeconds(daySpan, m)
		}

		for _, iv := range intervals {
			if iv.State == model.StateOk {
				continue
			}
			clipped, ok := clip(span{start: iv.StartDate, end: iv.EffectiveEnd(now)}, daySpan)
			if !ok {
				continue
			}
			down := clipped.seconds()
			for _, m := range maintenance {
				down -= overlapSeconds(clipped, m)
			}
			if down <= 0 {
				continue
			}
			day.DowntimeSeconds += down
			switch iv.State {
			case model.StateWarning:
				day.WarningSeconds += down
			case model.StateError:
				day.ErrorSeconds += down
			}
		}

		day.UptimeSeconds = day.WindowSeconds - day.DowntimeSeconds - day.MaintenanceSeconds
		if day.UptimeSeconds < 0 {
			day.UptimeSeconds = 0
		}

		result.Days = append(result.Days, day)
		result.UptimeSeconds += day.UptimeSeconds
		result.DowntimeSeconds += day.DowntimeSeconds
		result.MaintenanceSeconds += day.MaintenanceSeconds

		dayStart = dayEnd
	}

	denominator := result.UptimeSeconds + result.DowntimeSeconds
	if denominator <= 0 {
		result.Availability = 100.0
	} else {
		result.Availability = result.UptimeSeconds / denominator * 100.0
	}
	return result, nil
}

// maintenanceSpans - 요소에 적용되는 윈도우들을 질의 구간으로 클리핑
func maintenanceSpans(elementID string, windows []model.DeploymentWindow, start, end time.Time) []span {
	var spans []span
	for _, w := range windows {
		if !w.AppliesTo(elementID) {
			continue
		}
		wEnd := end
		if w.EndDate != nil && w.EndDate.Before(end) {
			wEnd = *w.EndDate
		}
		if clipped, ok := clip(span{start: w.StartDate, end: wEnd}, span{start: start, end: end}); ok {
			spans = append(spans, clipped)
		}
	}
	return spans
}

// mergeSpans - 겹치거나 맞닿은 구간 병합 (점검 시간 중복 계산 방지)
func mergeSpans(spans []span) []span {
	if len(spans) <= 1 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if !sp.start.After(last.end) {
			if sp.end.After(last.end) {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// clip - a를 b로 잘라냄; 겹침이 없으면 ok=false
func clip(a, b span) (span, bool) {
	out := a
	if out.start.Before(b.start) {
		out.start = b.start
	}
	if out.end.After(b.end) {
		out.end = b.end
	}
	if !out.start.Before(out.end) {
		return span{}, false
	}
	return out, true
}

func overlapSeconds(a, b span) float64 {
	if clipped, ok := clip(a, b); ok {
		return clipped.seconds()
	}
	return 0
}

func nextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
