package protocol

import (
	"github.com/fansqz/debug-adapter/constants"
	e "github.com/fansqz/debug-adapter/error"
	"github.com/google/go-dap"
)

func NewResponse(requestSeq int, command string) *dap.Response {
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: string(constants.ResponseMessage),
		},
		Command:    command,
		RequestSeq: requestSeq,
		Success:    true,
	}
}

// NewErrorResponse 构造失败的响应，code放在body.error.id中
func NewErrorResponse(requestSeq int, command string, code e.ErrorCode, message string) *dap.ErrorResponse {
	er := &dap.ErrorResponse{}
	er.Response = *NewResponse(requestSeq, command)
	er.Success = false
	er.Message = code.String()
	er.Body.Error = &dap.ErrorMessage{
		Id:       int(code),
		Format:   message,
		ShowUser: true,
	}
	return er
}

// ErrorResponseFrom converts err into an error response for the request.
// Errors without a code are reported as UnknownFailure.
func ErrorResponseFrom(request *dap.Request, err error) *dap.ErrorResponse {
	return NewErrorResponse(request.Seq, request.Command, e.CodeOf(err), err.Error())
}

// NewLaunchResponse 成功的launch响应
func NewLaunchResponse(request *dap.LaunchRequest) *dap.LaunchResponse {
	response := &dap.LaunchResponse{}
	response.Response = *NewResponse(request.Seq, request.Command)
	return response
}

// ResponseError extracts a readable reason from an unsuccessful response.
func ResponseError(response *dap.Response, message dap.Message) string {
	if er, ok := message.(*dap.ErrorResponse); ok && er.Body.Error != nil && er.Body.Error.Format != "" {
		return er.Body.Error.Format
	}
	if response.Message != "" {
		return response.Message
	}
	return "request " + response.Command + " failed"
}
