package models

// Company is a tracked listing.
type Company struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
}

// DefaultCompanies is the tracked universe seeded into an empty store.
var DefaultCompanies = []Company{
	{Symbol: "RELIANCE.NS", Name: "Reliance Industries", Exchange: "NSE", Sector: "Energy"},
	{Symbol: "TCS.NS", Name: "Tata Consultancy Services", Exchange: "NSE", Sector: "Technology"},
	{Symbol: "HDFCBANK.NS", Name: "HDFC Bank", Exchange: "NSE", Sector: "Financial"},
	{Symbol: "INFY.NS", Name: "Infosys", Exchange: "NSE", Sector: "Technology"},
	{Symbol: "ICICIBANK.NS", Name: "ICICI Bank", Exchange: "NSE", Sector: "Financial"},
	{Symbol: "HINDUNILVR.NS", Name: "Hindustan Unilever", Exchange: "NSE", Sector: "Consumer Goods"},
	{Symbol: "BHARTIARTL.NS", Name: "Bharti Airtel", Exchange: "NSE", Sector: "Telecommunications"},
	{Symbol: "SBIN.NS", Name: "State Bank of India", Exchange: "NSE", Sector: "Financial"},
	{Symbol: "BAJFINANCE.NS", Name: "Bajaj Finance", Exchange: "NSE", Sector: "Financial"},
	{Symbol: "WIPRO.NS", Name: "Wipro", Exchange: "NSE", Sector: "Technology"},
	{Symbol: "ITC.NS", Name: "ITC Limited", Exchange: "NSE", Sector: "Consumer Goods"},
	{Symbol: "LT.NS", Name: "Larsen & Toubro", Exchange: "NSE", Sector: "Engineering"},
	{Symbol: "AXISBANK.NS", Name: "Axis Bank", Exchange: "NSE", Sector: "Financial"},
	{Symbol: "MARUTI.NS", Name: "Maruti Suzuki", Exchange: "NSE", Sector: "Automotive"},
	{Symbol: "TITAN.NS", Name: "Titan Company", Exchange: "NSE", Sector: "Retail"},
}
