package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/blues/qfs/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client 链上出款客户端
// 平台持有出款私钥，向项目钱包发送原生代币转账，并以确认区块数判定终局。
type Client struct {
	client        *ethclient.Client
	privateKey    *ecdsa.PrivateKey
	fromAddress   common.Address
	chainId       *big.Int
	confirmations uint64
}

func Init(cfg config.ChainConfig) (*Client, error) {
	// 连接节点
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	// 解析私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &Client{
		client:        client,
		privateKey:    privateKey,
		fromAddress:   crypto.PubkeyToAddress(*publicKey),
		chainId:       big.NewInt(cfg.ChainId),
		confirmations: cfg.Confirmations,
	}, nil
}

// GetLatestBlock 获取最新区块号
func (c *Client) GetLatestBlock(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

// SendTransfer 发送原生代币转账，返回交易哈希
func (c *Client) SendTransfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid destination address: %s", to)
	}
	toAddr := common.HexToAddress(to)

	nonce, err := c.client.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amount,
		Gas:      21000,
		GasPrice: gasPrice,
	})

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainId), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// TxState 链上交易状态
type TxState int

const (
	TxStatePending   TxState = iota // 未上链或确认数不足
	TxStateConfirmed                // 已达确认数且执行成功
	TxStateReverted                 // 已上链但执行失败
)

// CheckTransfer 查询交易确认状态
func (c *Client) CheckTransfer(ctx context.Context, txHash string) (TxState, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		// 交易尚未上链
		return TxStatePending, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return TxStateReverted, nil
	}

	latest, err := c.GetLatestBlock(ctx)
	if err != nil {
		return TxStatePending, err
	}
	if latest < receipt.BlockNumber.Uint64()+c.confirmations {
		return TxStatePending, nil
	}
	return TxStateConfirmed, nil
}
