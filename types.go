package main

type EntryRequest struct {
	Plate      string `query:"plate" validate:"required"`
	ParkingLot string `query:"parkingLot" validate:"required"`
}

type EntryResponse struct {
	TicketID string `json:"ticketId"`
}

type ExitRequest struct {
	TicketID string `query:"ticketId" validate:"required"`
}

type ExitResponse struct {
	LicensePlate    string  `json:"licensePlate"`
	TotalParkedTime string  `json:"totalParkedTime"`
	ParkingLotID    string  `json:"parkingLotId"`
	Charge          float64 `json:"charge"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
