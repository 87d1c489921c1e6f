package server

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/relay"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
	"google.golang.org/protobuf/proto"
)

const (
	stateMetricPrefix = "sunnyportal_"
	relayMetricPrefix = "sunnyrelay_"
)

func gauge(name, help string, v float64, labels ...*dto.LabelPair) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{
			Label: labels,
			Gauge: &dto.Gauge{Value: proto.Float64(v)},
		}},
	}
}

func counter(name, help string, v int) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Counter: &dto.Counter{Value: proto.Float64(float64(v))},
		}},
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// relayFamilies converts the relay status into metric families.
func relayFamilies(st relay.Status) []*dto.MetricFamily {
	mfs := []*dto.MetricFamily{
		gauge(relayMetricPrefix+"authenticated", "Whether the relay currently holds a portal session.", boolValue(st.Authenticated)),
		gauge(relayMetricPrefix+"timer_armed", "Whether the poll timer is armed.", boolValue(st.TimerArmed)),
		counter(relayMetricPrefix+"logins_total", "Successful portal logins.", st.Logins),
		counter(relayMetricPrefix+"login_failures_total", "Portal logins that failed in transport.", st.LoginFailures),
		counter(relayMetricPrefix+"polls_total", "Successful homemanager polls.", st.Polls),
		counter(relayMetricPrefix+"poll_failures_total", "Homemanager polls that led to re-authentication.", st.PollFailures),
		counter(relayMetricPrefix+"publish_failures_total", "States that failed to publish.", st.PublishFailures),
		counter(relayMetricPrefix+"timer_arms_total", "Times the poll timer was armed.", st.TimerArms),
	}
	if !st.LastPoll.IsZero() {
		mfs = append(mfs, gauge(relayMetricPrefix+"last_poll_timestamp_seconds", "Unix time of the last poll.", float64(st.LastPoll.Unix())+float64(st.LastPoll.Nanosecond())/1e9))
	}
	return mfs
}

// stateFamilies exports every numeric state as a gauge named after the state.
// String states and indexed list entries are skipped.
func stateFamilies(namespace string, entries []types.StateEntry) []*dto.MetricFamily {
	prefix := namespace
	if prefix != "" {
		prefix += "."
	}
	var mfs []*dto.MetricFamily
	for _, e := range entries {
		v, ok := e.Val.(float64)
		if !ok {
			continue
		}
		name := strings.TrimPrefix(e.ID, prefix)
		if strings.Contains(name, ".") {
			continue
		}
		mfs = append(mfs, gauge(
			stateMetricPrefix+name,
			"Sunny Portal home manager "+strings.ReplaceAll(name, "_", " ")+".",
			v,
			&dto.LabelPair{Name: proto.String("namespace"), Value: proto.String(namespace)},
		))
	}
	return mfs
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.listStates(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list states", slog.Any("error", err))
		http.Error(w, "failed to list states", http.StatusInternalServerError)
		return
	}

	mfs := append(relayFamilies(s.relay.Status()), stateFamilies(s.relay.Namespace(), entries)...)
	sort.Slice(mfs, func(i, j int) bool {
		return mfs[i].GetName() < mfs[j].GetName()
	})

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to encode metric family", slog.String("name", mf.GetName()), slog.Any("error", err))
			panic(http.ErrAbortHandler)
		}
	}
}
