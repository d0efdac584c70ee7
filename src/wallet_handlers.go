package main

import (
	"net/http"

	"hbs/src/types"

	"github.com/gin-gonic/gin"
)

func walletHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/wallet", func(ctx *gin.Context) {
			wallet, err := walletsSvc.Balance(ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": wallet})
		}).
		GET("/wallet/transactions", func(ctx *gin.Context) {
			txns, err := walletsSvc.Statement(ctx.GetUint("id"), 50)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": txns, "count": len(txns)})
		}).
		POST("/wallet/transfer", func(ctx *gin.Context) {
			var body types.WalletTransferRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			out, in, err := walletsSvc.Transfer(ctx.GetUint("id"), body.ToAccount, body.Amount, body.Reason)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"out": out, "in": in}})
		}).
		POST("/wallet/withdraw", func(ctx *gin.Context) {
			var body types.WithdrawRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := paymentsSvc.Withdraw(ctx.GetUint("id"), body.Amount)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusAccepted, gin.H{"data": payment})
		})
	return g
}
