package market

// DefaultInstruments is the starting watchlist for a fresh session.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{ID: "1", Symbol: "RELIANCE", Name: "Reliance Industries Ltd.", Exchange: NSE, Price: 1268.45, Change: 4.20, ChangePercent: 0.33},
		{ID: "2", Symbol: "TCS", Name: "Tata Consultancy Services", Exchange: NSE, Price: 3942.80, Change: -12.20, ChangePercent: -0.31},
		{ID: "bse-sensex", Symbol: "SENSEX", Name: "S&P BSE SENSEX", Exchange: BSE, Price: 77209.90, Change: 350.25, ChangePercent: 0.46},
		{ID: "3", Symbol: "HDFCBANK", Name: "HDFC Bank Ltd.", Exchange: NSE, Price: 1728.15, Change: 8.30, ChangePercent: 0.48},
		{ID: "4", Symbol: "INFY", Name: "Infosys Ltd.", Exchange: NSE, Price: 1882.40, Change: -5.10, ChangePercent: -0.27},
		{ID: "5", Symbol: "ICICIBANK", Name: "ICICI Bank Ltd.", Exchange: NSE, Price: 1242.65, Change: 12.25, ChangePercent: 1.00},
		{ID: "bse-reliance", Symbol: "RELIANCE", Name: "Reliance (BSE)", Exchange: BSE, Price: 1268.60, Change: 4.35, ChangePercent: 0.34},
		{ID: "7", Symbol: "SBIN", Name: "State Bank of India", Exchange: NSE, Price: 782.40, Change: -2.20, ChangePercent: -0.28},
		{ID: "bse-sbi", Symbol: "SBIN", Name: "SBI (BSE)", Exchange: BSE, Price: 782.55, Change: -2.10, ChangePercent: -0.27},
		{ID: "8", Symbol: "ITC", Name: "ITC Ltd.", Exchange: NSE, Price: 492.10, Change: 2.05, ChangePercent: 0.42},
		{ID: "bse-itc", Symbol: "ITC", Name: "ITC (BSE)", Exchange: BSE, Price: 492.25, Change: 2.15, ChangePercent: 0.44},
		{ID: "10", Symbol: "LICI", Name: "LIC of India", Exchange: NSE, Price: 1045.20, Change: 5.60, ChangePercent: 0.54},
	}
}
