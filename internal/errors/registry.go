package errors

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// Registered codes.
const (
	CodeMissingIdentifier   = "H001"
	CodeDuplicateIdentifier = "H002"
	CodeMissingTarget       = "H003"
	CodeMalformedPayload    = "H004"
	CodeUnknownHook         = "H005"
	CodeHookPanic           = "H006"

	CodeFrameTruncated  = "P001"
	CodeFrameTooLarge   = "P002"
	CodeInvalidValue    = "P003"
	CodeDepthExceeded   = "P004"
	CodeCollectionLimit = "P005"
	CodeUnexpectedFrame = "P006"
	CodeUnknownEvent    = "P007"
	CodeHandlerFailed   = "P008"

	CodeDialFailed  = "T001"
	CodeWriteFailed = "T002"
	CodeClosed      = "T003"

	CodeConfigRead    = "C001"
	CodeConfigInvalid = "C002"

	CodeUploadTooLarge = "U001"
	CodeUploadStore    = "U002"
	CodeUploadRejected = "U003"
)

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Hook errors (H001-H099)
	// ============================================

	CodeMissingIdentifier: {
		Category: CategoryHook,
		Message:  "Orderable item has no identifier",
		Detail:   "The item carries neither the identifier attribute nor an id attribute and is excluded from reordering.",
	},
	CodeDuplicateIdentifier: {
		Category: CategoryHook,
		Message:  "Orderable item identifier is not unique",
		Detail:   "A preceding item in the same container already uses this identifier; the later item is excluded from reordering.",
	},
	CodeMissingTarget: {
		Category: CategoryHook,
		Message:  "Target element not found",
		Detail:   "A hook looked up a dependent element that is not in the document; the operation was skipped.",
	},
	CodeMalformedPayload: {
		Category: CategoryHook,
		Message:  "Malformed server payload",
		Detail:   "A server-pushed event did not have the expected shape and was ignored.",
	},
	CodeUnknownHook: {
		Category: CategoryHook,
		Message:  "Unknown hook",
		Detail:   "The element names a hook that is not in the registry passed to the view.",
	},
	CodeHookPanic: {
		Category: CategoryHook,
		Message:  "Hook callback panicked",
		Detail:   "The panic was recovered on the event loop; the remaining callbacks still run.",
	},

	// ============================================
	// Protocol errors (P001-P099)
	// ============================================

	CodeFrameTruncated: {
		Category: CategoryProtocol,
		Message:  "Frame truncated",
		Detail:   "The buffer ended before the header or the declared payload length.",
	},
	CodeFrameTooLarge: {
		Category: CategoryProtocol,
		Message:  "Frame payload too large",
		Detail:   "Frame payloads are limited to 65535 bytes.",
	},
	CodeInvalidValue: {
		Category: CategoryProtocol,
		Message:  "Invalid encoded value",
	},
	CodeDepthExceeded: {
		Category: CategoryProtocol,
		Message:  "Maximum nesting depth exceeded",
	},
	CodeCollectionLimit: {
		Category: CategoryProtocol,
		Message:  "Collection count exceeds limit",
	},
	CodeUnexpectedFrame: {
		Category: CategoryProtocol,
		Message:  "Unexpected frame type",
	},
	CodeUnknownEvent: {
		Category: CategoryProtocol,
		Message:  "No handler registered for event",
	},
	CodeHandlerFailed: {
		Category: CategoryProtocol,
		Message:  "Event handler failed",
	},

	// ============================================
	// Transport errors (T001-T099)
	// ============================================

	CodeDialFailed: {
		Category: CategoryTransport,
		Message:  "WebSocket connection failed",
	},
	CodeWriteFailed: {
		Category: CategoryTransport,
		Message:  "WebSocket write failed",
	},
	CodeClosed: {
		Category: CategoryTransport,
		Message:  "Channel closed",
	},

	// ============================================
	// Config errors (C001-C099)
	// ============================================

	CodeConfigRead: {
		Category: CategoryConfig,
		Message:  "Cannot read configuration",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},

	// ============================================
	// Upload errors (U001-U099)
	// ============================================

	CodeUploadTooLarge: {
		Category: CategoryUpload,
		Message:  "File too large",
	},
	CodeUploadStore: {
		Category: CategoryUpload,
		Message:  "Cannot store uploaded file",
	},
	CodeUploadRejected: {
		Category: CategoryUpload,
		Message:  "File rejected",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
