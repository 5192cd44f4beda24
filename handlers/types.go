package handlers

// ApplicationSummary is one application and its instance count.
type ApplicationSummary struct {
	Name      string `json:"name"`
	Instances int    `json:"instances"`
}

// ApplicationsResponse lists applications sorted by name.
type ApplicationsResponse struct {
	Applications []ApplicationSummary `json:"applications"`
}

// InstanceInfo is one registered instance.
type InstanceInfo struct {
	AppName      string `json:"app_name"`
	Host         string `json:"host"`
	InternalHost string `json:"internal_host,omitempty"`
	Port         int    `json:"port"`
	State        string `json:"state"`
	StartTime    int64  `json:"start_time"`
	LastRecover  int64  `json:"last_recover"`
}

// InstancesResponse lists instances.
type InstancesResponse struct {
	Instances []InstanceInfo `json:"instances"`
}

// Record is one stored dimension value.
type Record struct {
	SchemeName string `json:"scheme_name"`
	Timestamp  int64  `json:"timestamp"`
	Value      string `json:"value"`
}

// RecordsRequest is the body of AddRecords.
type RecordsRequest struct {
	Records []Record `json:"records"`
}

// RecordsResponse lists records oldest first.
type RecordsResponse struct {
	Records []Record `json:"records"`
}
