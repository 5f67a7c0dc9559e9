package session

type output struct {
	Body response
}

type response struct {
	DeviceID string `json:"device_id" doc:"ID устройства из заголовка X-Device-ID"`
	Status   string `json:"status"`
}
