package conditions

// Minimal ABI fragments for the three condition contracts, covering only the
// methods and events the clients touch.

const LockRewardConditionABI = `[
  {
    "constant": false,
    "inputs": [
      {"name": "serviceAgreementId", "type": "bytes32"},
      {"name": "rewardAddress", "type": "address"},
      {"name": "price", "type": "uint256"}
    ],
    "name": "fulfill",
    "outputs": [{"name": "", "type": "bool"}],
    "payable": false,
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "serviceAgreementId", "type": "bytes32"},
      {"indexed": false, "name": "rewardAddress", "type": "address"},
      {"indexed": false, "name": "conditionId", "type": "bytes32"},
      {"indexed": false, "name": "price", "type": "uint256"}
    ],
    "name": "Fulfilled",
    "type": "event"
  }
]`

const AccessSecretStoreConditionABI = `[
  {
    "constant": false,
    "inputs": [
      {"name": "serviceAgreementId", "type": "bytes32"},
      {"name": "documentKeyId", "type": "bytes32"},
      {"name": "grantee", "type": "address"}
    ],
    "name": "grantAccess",
    "outputs": [{"name": "", "type": "bool"}],
    "payable": false,
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [
      {"name": "documentKeyId", "type": "bytes32"},
      {"name": "grantee", "type": "address"}
    ],
    "name": "checkPermissions",
    "outputs": [{"name": "", "type": "bool"}],
    "payable": false,
    "stateMutability": "view",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "serviceAgreementId", "type": "bytes32"},
      {"indexed": false, "name": "documentKeyId", "type": "bytes32"},
      {"indexed": true, "name": "grantee", "type": "address"},
      {"indexed": false, "name": "conditionId", "type": "bytes32"}
    ],
    "name": "Fulfilled",
    "type": "event"
  }
]`

const EscrowRewardABI = `[
  {
    "constant": false,
    "inputs": [
      {"name": "serviceAgreementId", "type": "bytes32"},
      {"name": "amount", "type": "uint256"},
      {"name": "receiver", "type": "address"},
      {"name": "sender", "type": "address"},
      {"name": "lockConditionId", "type": "bytes32"},
      {"name": "releaseConditionId", "type": "bytes32"}
    ],
    "name": "escrowReward",
    "outputs": [{"name": "", "type": "bool"}],
    "payable": false,
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "serviceAgreementId", "type": "bytes32"},
      {"indexed": false, "name": "receiver", "type": "address"},
      {"indexed": false, "name": "conditionId", "type": "bytes32"},
      {"indexed": false, "name": "amount", "type": "uint256"}
    ],
    "name": "Fulfilled",
    "type": "event"
  }
]`
