package serverutils

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorBody struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	ShortMessage string `json:"short_message,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{
		Message: message,
		Data:    data,
	}
}

func ErrResponse(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": ErrorBody{Code: code, Message: message},
	}
}
