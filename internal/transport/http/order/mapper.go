package order

import (
	"github.com/Additional-Code/bistro/internal/dto"
	"github.com/Additional-Code/bistro/internal/entity"
	service "github.com/Additional-Code/bistro/internal/service/order"
)

func toInput(req dto.OrderRequest) service.OrderInput {
	in := service.OrderInput{
		Items:           make([]service.ItemInput, 0, len(req.Items)),
		TotalAmount:     req.TotalAmount,
		PaymentMethod:   entity.PaymentMethod(req.PaymentMethod),
		DeliveryAddress: req.DeliveryAddress,
		TableNumber:     req.TableNumber,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.ItemInput{
			FoodID:    item.Food,
			Quantity:  item.Quantity,
			Price:     item.Price,
			OrderType: entity.OrderType(item.OrderType),
		})
	}
	if g := req.GuestDetails; g != nil {
		in.Guest = entity.GuestDetails{
			Name:        g.Name,
			Phone:       g.Phone,
			Address:     g.Address,
			TableNumber: g.TableNumber,
		}
	}
	return in
}

func toDTO(order *entity.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:              order.ID,
		User:            order.UserID,
		Items:           make([]dto.OrderItemResponse, 0, len(order.Items)),
		TotalAmount:     order.TotalAmount.InexactFloat64(),
		DeliveryAddress: order.DeliveryAddress,
		TableNumber:     order.TableNumber,
		Status:          string(order.Status),
		PaymentMethod:   string(order.PaymentMethod),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		line := dto.OrderItemResponse{
			Food:      item.FoodID,
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
			OrderType: string(item.OrderType),
		}
		// Foods removed from the catalog after ordering render as the bare id.
		if item.Food != nil {
			line.Food = dto.FoodResponse{
				ID:    item.Food.ID,
				Name:  item.Food.Name,
				Price: item.Food.Price.InexactFloat64(),
				Image: item.Food.Image,
			}
		}
		resp.Items = append(resp.Items, line)
	}
	if !order.Guest.IsZero() {
		resp.GuestDetails = &dto.GuestDetails{
			Name:        order.Guest.Name,
			Phone:       order.Guest.Phone,
			Address:     order.Guest.Address,
			TableNumber: order.Guest.TableNumber,
		}
	}
	return resp
}

func toDTOs(orders []*entity.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toDTO(order))
	}
	return out
}
