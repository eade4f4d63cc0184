package httpdto

type AddUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type UserListResponse struct {
	Users []string `json:"users"`
	Total int      `json:"total"`
}

type CategoryQuota struct {
	Count     uint `json:"count"`
	Limit     uint `json:"limit"`
	Remaining uint `json:"remaining"`
}

type BatchQuotaResponse struct {
	BatchID   string        `json:"batch_id"`
	Photos    CategoryQuota `json:"photos"`
	Videos    CategoryQuota `json:"videos"`
	Documents CategoryQuota `json:"documents"`
}
