package handlers

import (
	"myregistry/domain"
	"myregistry/service"
)

// fromHostPort validates the instance address of a records request.
// Returns service.BadParameterError on validation failure.
func fromHostPort(host string, port int) (domain.HostAndPort, error) {
	if host == "" {
		return domain.HostAndPort{}, service.NewBadParameterError("host is required", nil)
	}
	if port < 1 || port > 65535 {
		return domain.HostAndPort{}, service.NewBadParameterError("port must be within 1..65535", nil)
	}
	return domain.HostAndPort{Host: host, Port: port}, nil
}

// fromRecordsRequest converts RecordsRequest to store records and the distinct schemes they use.
// Returns service.BadParameterError on validation failure.
func fromRecordsRequest(req RecordsRequest) ([]domain.StoreRecord, []string, error) {
	if len(req.Records) == 0 {
		return nil, nil, service.NewBadParameterError("records are required", nil)
	}

	records := make([]domain.StoreRecord, 0, len(req.Records))
	seen := map[string]struct{}{}
	var schemes []string
	for _, r := range req.Records {
		if r.SchemeName == "" {
			return nil, nil, service.NewBadParameterError("scheme_name is required", nil)
		}
		if _, ok := seen[r.SchemeName]; !ok {
			seen[r.SchemeName] = struct{}{}
			schemes = append(schemes, r.SchemeName)
		}
		records = append(records, domain.StoreRecord{SchemeName: r.SchemeName, Timestamp: r.Timestamp, Value: r.Value})
	}
	return records, schemes, nil
}
