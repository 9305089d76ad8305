package handlers

import (
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/service/dispatch"
	"quickbites-dispatch/internal/service/order"
)

func checkoutToInput(req checkoutRequest) order.CheckoutInput {
	in := order.CheckoutInput{
		UserID:        req.UserID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Address: domain.DeliveryAddress{
			Text: req.Address.Text,
			Lat:  req.Address.Lat,
			Lng:  req.Address.Lng,
		},
		TotalAmount: req.TotalAmount,
	}
	for _, it := range req.Items {
		ref := order.ShopRef{ID: it.Shop.ID}
		if it.Shop.Info != nil {
			ref.Info = &order.ShopInfo{
				ID:      it.Shop.Info.ID,
				OwnerID: it.Shop.Info.OwnerID,
				Name:    it.Shop.Info.Name,
			}
		}
		in.Items = append(in.Items, order.CheckoutItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Shop:     ref,
		})
	}
	return in
}

func orderToResponse(o *domain.Order) *orderResponse {
	if o == nil {
		return nil
	}
	resp := &orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		PaymentMethod: string(o.PaymentMethod),
		Address: addressRequest{
			Text: o.Address.Text,
			Lat:  o.Address.Lat,
			Lng:  o.Address.Lng,
		},
		TotalAmount: o.TotalAmount,
		OrderedAt:   o.OrderedAt,
	}
	for _, so := range o.ShopOrders {
		items := make([]orderItemResponse, 0, len(so.Items))
		for _, it := range so.Items {
			items = append(items, orderItemResponse{
				ItemID:   it.ItemID,
				Name:     it.Name,
				Price:    it.Price,
				Quantity: it.Quantity,
			})
		}
		resp.ShopOrders = append(resp.ShopOrders, shopOrderResponse{
			ID:                so.ID,
			ShopID:            so.ShopID,
			Subtotal:          so.Subtotal,
			Status:            string(so.Status),
			AssignedCourierID: so.AssignedCourierID,
			AssignmentID:      so.AssignmentID,
			AssignedAt:        so.AssignedAt,
			DeliveredAt:       so.DeliveredAt,
			Items:             items,
		})
	}
	return resp
}

func assignmentToResponse(a domain.Assignment) assignmentResponse {
	return assignmentResponse{
		ID:          a.ID,
		OrderID:     a.OrderID,
		ShopOrderID: a.ShopOrderID,
		ShopID:      a.ShopID,
		Status:      string(a.Status),
		AssignedTo:  a.AssignedTo,
		CreatedAt:   a.CreatedAt,
		AcceptedAt:  a.AcceptedAt,
		CompletedAt: a.CompletedAt,
	}
}

func transitionToResponse(res dispatch.TransitionResult) transitionResponse {
	resp := transitionResponse{
		ShopOrderID:    res.ShopOrderID,
		Status:         string(res.Status),
		CandidateCount: res.CandidateCount,
		AvailableCount: res.AvailableCount,
		NoCouriers:     res.NoCouriers,
	}
	if res.Assignment != nil {
		a := assignmentToResponse(*res.Assignment)
		resp.Assignment = &a
	}
	return resp
}
