package cart

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,lte=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0,lte=999"`
}
