package handlers

import (
	"slices"
	"strings"

	"myregistry/domain"
)

// toApplicationsResponse converts instance counts to API response sorted by name.
func toApplicationsResponse(counts map[string]int) ApplicationsResponse {
	out := make([]ApplicationSummary, 0, len(counts))
	for name, n := range counts {
		out = append(out, ApplicationSummary{Name: name, Instances: n})
	}
	slices.SortFunc(out, func(a, b ApplicationSummary) int { return strings.Compare(a.Name, b.Name) })
	return ApplicationsResponse{Applications: out}
}

// toInstancesResponse converts domain applications to API response.
func toInstancesResponse(apps []domain.Application) InstancesResponse {
	out := make([]InstanceInfo, 0, len(apps))
	for _, a := range apps {
		out = append(out, InstanceInfo{
			AppName:      a.Name,
			Host:         a.Host,
			InternalHost: a.InternalHost,
			Port:         a.Port,
			State:        a.State,
			StartTime:    a.StartTime,
			LastRecover:  a.LastRecover,
		})
	}
	return InstancesResponse{Instances: out}
}

func toRecordsResponse(records []domain.StoreRecord) RecordsResponse {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, Record{SchemeName: r.SchemeName, Timestamp: r.Timestamp, Value: r.Value})
	}
	return RecordsResponse{Records: out}
}
