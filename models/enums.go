package models

const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)

const (
	SyncDirectionCrmToErp = "crm_to_erp"
	SyncDirectionErpToCrm = "erp_to_crm"
)

// Order channels derived from the order-number shape.
const (
	ChannelRetail     = "retail-channel"
	ChannelThirdParty = "third-party"
	ChannelErpDirect  = "erp-direct"
	ChannelUnknown    = "unknown"
)

// Commission status of a customer within a period.
const (
	CommissionStatusNew         = "new"
	CommissionStatusSixMonth    = "6month"
	CommissionStatusTwelveMonth = "12month"
	CommissionStatusTransferred = "transferred"
	CommissionStatusOwn         = "own"
)

// Account segments as tracked on the CRM side.
const (
	AccountTypeDistributor = "distributor"
	AccountTypeWholesale   = "wholesale"
	AccountTypeRetail      = "retail"
)

// Provenance of a customer's account type: which system last set it.
const (
	AccountTypeSourceErpImport        = "erp-import"
	AccountTypeSourceCrmSync          = "crm-sync"
	AccountTypeSourceCrmDuplicateLink = "crm-duplicate-link"
	AccountTypeSourceExisting         = "existing"
)

const (
	SpiffKindFlat       = "flat"
	SpiffKindPercentage = "percentage"
)

const (
	UserRoleAdmin = "A"
	UserRoleStaff = "S"
)
