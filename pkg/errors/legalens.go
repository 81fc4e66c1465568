package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// legalens 服务错误码 (AA = 21)
var (
	// 请求参数错误 (类别 01)
	ErrInvalidDocument = Register(New(MakeCode(ServiceLegalens, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument, "Request body must contain 'text'", "请求体必须包含 text"))
	ErrUnsupportedContract = Register(New(MakeCode(ServiceLegalens, CategoryRequest, 2),
		http.StatusBadRequest, codes.InvalidArgument,
		"Unsupported contract type. Only rental, employment and loan agreements are supported.", "不支持的合同类型"))
	ErrInvalidChatRequest = Register(New(MakeCode(ServiceLegalens, CategoryRequest, 3),
		http.StatusBadRequest, codes.InvalidArgument,
		"Request body must contain 'summary', 'detailedAnalysis' and 'question'", "请求体缺少必需字段"))
	ErrInvalidLoanRequest = Register(New(MakeCode(ServiceLegalens, CategoryRequest, 4),
		http.StatusBadRequest, codes.InvalidArgument, "Request body must contain 'summary'", "请求体必须包含 summary"))
	ErrInvalidKnowledge = Register(New(MakeCode(ServiceLegalens, CategoryRequest, 5),
		http.StatusBadRequest, codes.InvalidArgument, "Invalid reference clause", "参考条款无效"))
	ErrRateNotFound = Register(New(MakeCode(ServiceLegalens, CategoryRequest, 6),
		http.StatusUnprocessableEntity, codes.FailedPrecondition,
		"Could not extract rate from the agreement summary", "无法从摘要中提取利率"))

	// 超时 (类别 11)
	ErrAnalysisTimeout = Register(New(MakeCode(ServiceLegalens, CategoryTimeout, 1),
		http.StatusGatewayTimeout, codes.DeadlineExceeded, "Document analysis timed out", "文档分析超时"))

	// 内部错误 (类别 07)
	ErrGenerationFailed = Register(New(MakeCode(ServiceLegalens, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal, "Could not generate a response.", "无法生成回答"))
	ErrKnowledgeIndexFailed = Register(New(MakeCode(ServiceLegalens, CategoryInternal, 2),
		http.StatusInternalServerError, codes.Internal, "Reference clause indexing failed", "参考条款索引失败"))
	ErrAnalysisFailed = Register(New(MakeCode(ServiceLegalens, CategoryInternal, 3),
		http.StatusInternalServerError, codes.Internal, "Document analysis failed", "文档分析失败"))
)
