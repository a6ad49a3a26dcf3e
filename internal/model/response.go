package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// IngestResponse - 관측 수집 API 응답 구조체
type IngestResponse struct {
	Status   string   `json:"status"`
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// WindowMutationResponse - 배포 윈도우 생성/수정/삭제 API 응답 구조체
type WindowMutationResponse struct {
	Status   string `json:"status"`
	WindowID int64  `json:"windowId,omitempty"`
	Children int    `json:"children"`
}
