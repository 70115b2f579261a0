// Package policy is the single (role, action) authorization table every
// protected route and role-dependent service branch consults.
package policy

import "electroCare/domain"

type Action string

const (
	RepairCreate        Action = "repair.create"
	RepairAccept        Action = "repair.accept"
	RepairUpdateStatus  Action = "repair.update_status"
	RepairAssign        Action = "repair.assign"
	RepairTrack         Action = "repair.track"
	RepairViewQueue     Action = "repair.view_queue"
	RepairViewTechQueue Action = "repair.view_tech_queue"
	RepairViewAny       Action = "repair.view_any"

	ListingCreate        Action = "listing.create"
	ListingCreatePremium Action = "listing.create_premium"
	ListingAutoApprove   Action = "listing.auto_approve"
	ListingReview        Action = "listing.review"

	PurchaseCreate Action = "purchase.create"
	PurchaseReview Action = "purchase.review"

	WalletUse        Action = "wallet.use"
	WithdrawalReview Action = "withdrawal.review"

	ApplicationSubmit Action = "application.submit"
	ApplicationReview Action = "application.review"

	BroadcastSend     Action = "broadcast.send"
	UserManage        Action = "user.manage"
	UploadCreate      Action = "upload.create"
	RealtimeSubscribe Action = "realtime.subscribe"
)

var everyone = []string{
	domain.RoleUser,
	domain.RoleTechnician,
	domain.RoleDelivery,
	domain.RoleAdmin,
	domain.RoleShop,
}

var table = map[Action][]string{
	RepairCreate:        everyone,
	RepairAccept:        {domain.RoleAdmin, domain.RoleShop, domain.RoleTechnician, domain.RoleDelivery},
	RepairUpdateStatus:  {domain.RoleTechnician},
	RepairAssign:        {domain.RoleAdmin, domain.RoleShop},
	RepairTrack:         {domain.RoleDelivery},
	RepairViewQueue:     {domain.RoleAdmin, domain.RoleShop, domain.RoleDelivery},
	RepairViewTechQueue: {domain.RoleTechnician},
	RepairViewAny:       {domain.RoleAdmin},

	ListingCreate:        everyone,
	ListingCreatePremium: {domain.RoleAdmin, domain.RoleShop},
	ListingAutoApprove:   {domain.RoleAdmin, domain.RoleShop},
	ListingReview:        {domain.RoleAdmin, domain.RoleShop, domain.RoleTechnician},

	PurchaseCreate: everyone,
	PurchaseReview: {domain.RoleAdmin},

	WalletUse:        everyone,
	WithdrawalReview: {domain.RoleAdmin},

	ApplicationSubmit: {domain.RoleUser},
	ApplicationReview: {domain.RoleAdmin},

	BroadcastSend:     {domain.RoleAdmin},
	UserManage:        {domain.RoleAdmin},
	UploadCreate:      everyone,
	RealtimeSubscribe: everyone,
}

var allowed = func() map[Action]map[string]bool {
	m := make(map[Action]map[string]bool, len(table))
	for action, roles := range table {
		m[action] = make(map[string]bool, len(roles))
		for _, role := range roles {
			m[action][role] = true
		}
	}
	return m
}()

// Can reports whether role may perform action. Unknown actions are denied.
func Can(role string, action Action) bool {
	return allowed[action][role]
}
