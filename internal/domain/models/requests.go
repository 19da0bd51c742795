package models

// Requests for the HTTP endpoints. Defined in domain so use cases and jobs can reuse them.

type CompaniesRequest struct {
	Skip  int `query:"skip" json:"skip" validate:"gte=0"`
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type SymbolRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,symbol"`
}

type SeriesRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,symbol"`
	Days   int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

type CompareRequest struct {
	Symbol1 string `query:"symbol1" json:"symbol1" validate:"required,symbol"`
	Symbol2 string `query:"symbol2" json:"symbol2" validate:"required,symbol"`
	Days    int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

type InsightsRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type CollectRequest struct {
	Symbol string `json:"symbol" validate:"symbol"`
	Period string `json:"period" default:"1y" validate:"period"`
	NoMock bool   `json:"no_mock"`
}

type CacheClearRequest struct {
	Prefix string `query:"prefix" json:"prefix"`
}
