package dbConverter

import (
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model/dbModel"
)

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		UserID:   dbUser.UserID,
		Username: dbUser.Username,
		Balance:  dbUser.Balance,
	}
}

func ConvertCredentials(dbUser dbModel.User) model.Credentials {
	return model.Credentials{
		UserID:       dbUser.UserID,
		Username:     dbUser.Username,
		PasswordHash: dbUser.PasswordHash,
	}
}

func ConvertLot(dbLot dbModel.Lot) model.Lot {
	return model.Lot{
		LotID:    dbLot.LotID,
		UserID:   dbLot.UserID,
		Symbol:   dbLot.Symbol,
		Quantity: dbLot.Quantity,
		BuyPrice: dbLot.BuyPrice,
		BuyDate:  dbLot.BuyDate,
	}
}

func ConvertTransaction(dbTx dbModel.Transaction) model.Transaction {
	return model.Transaction{
		TransactionID: dbTx.TransactionID,
		UserID:        dbTx.UserID,
		Symbol:        dbTx.Symbol,
		Quantity:      dbTx.Quantity,
		Price:         dbTx.Price,
		Side:          model.TradeSide(dbTx.Side),
		DtCreate:      dbTx.DtCreate,
	}
}
