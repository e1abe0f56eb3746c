package dto

// CreateHealthPlanRequest links a member to a payer plan
type CreateHealthPlanRequest struct {
	MemberID            int64  `json:"memberId" binding:"required,min=1"`
	PayerID             int64  `json:"payerId" binding:"required,min=1"`
	SubscriberID        string `json:"subscriberId" binding:"required"`
	PlanName            string `json:"planName" binding:"required"`
	IsFamilyPlan        bool   `json:"isFamilyPlan"`
	PlanStart           string `json:"planStart" binding:"required"`
	PlanEnd             string `json:"planEnd"`
	SubscriberFirstName string `json:"subscriberFirstName" binding:"required"`
	SubscriberLastName  string `json:"subscriberLastName" binding:"required"`
	SubscriberDOB       string `json:"subscriberDob" binding:"required"`
}

// CostBreakdownRequest asks how a procedure cost splits
type CostBreakdownRequest struct {
	CostCents int64  `json:"costCents" binding:"required,gt=0"`
	Date      string `json:"date"`
}
