package util

import (
	libconstants "github.com/filswan/go-swan-lib/constants"
)

type BasicResponse struct {
	Status   string      `json:"status"`
	Code     int         `json:"code"`
	Data     interface{} `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
	PageInfo *PageInfo   `json:"page_info,omitempty"`
}

type PageInfo struct {
	PageNumber       string `json:"page_number"`
	PageSize         string `json:"page_size"`
	TotalRecordCount string `json:"total_record_count"`
}

func CreateSuccessResponse(_data interface{}) BasicResponse {
	return BasicResponse{
		Status: libconstants.SWAN_API_STATUS_SUCCESS,
		Data:   _data,
		Code:   SuccessCode,
	}
}

func CreateErrorResponse(code int, errMsg ...string) BasicResponse {
	var msg string
	if len(errMsg) == 0 {
		msg = codeMsg[code]
	} else {
		msg = errMsg[0]
	}
	return BasicResponse{
		Status:  libconstants.SWAN_API_STATUS_FAIL,
		Code:    code,
		Message: msg,
	}
}

const (
	SuccessCode = 200
	JsonError   = 400

	BadParamError      = 7001
	ContractCallError  = 7002
	IndeterminateError = 7003
	WorkerProbeError   = 7004
	ExecutionError     = 7005
	StorageError       = 7006
	TransitionError    = 7007
	NotFoundError      = 7008
)

var codeMsg = map[int]string{
	JsonError: "An error occurred while converting to json",

	BadParamError:      "Request parameter is invalid",
	ContractCallError:  "The ledger rejected or could not execute the call",
	IndeterminateError: "Confirmation not observed before the timeout",
	WorkerProbeError:   "The execution worker is unreachable",
	ExecutionError:     "The execution worker reported a failure",
	StorageError:       "Uploading the result to the content store failed",
	TransitionError:    "The requested lifecycle move is not allowed",
	NotFoundError:      "No such record",
}
