// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：sv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：share(分享记录)、blob(对象存储)
// 动作/状态：created/retrieved/deleted/expired 等

const (
	// 分享记录生命周期.
	TopicShareCreated   = "sv.share.created"   // 分享创建完成（对象与元数据均已落盘）
	TopicShareRetrieved = "sv.share.retrieved" // 取件码兑换成功
	TopicShareDeleted   = "sv.share.deleted"   // 分享被删除（TTL、宽限期、清扫或手动）
	TopicShareExpired   = "sv.share.expired"   // 分享超过有效期（删除动作随后发布 deleted）

	// 对象存储领域.
	TopicBlobDeleteFailed = "sv.blob.delete.failed" // 对象删除失败，留待清扫任务重试
)

// 主题分组，用于批量订阅.
var (
	// 分享记录相关主题集合.
	ShareTopics = []string{
		TopicShareCreated, TopicShareRetrieved,
		TopicShareDeleted, TopicShareExpired,
	}

	// 对象存储相关主题集合.
	BlobTopics = []string{
		TopicBlobDeleteFailed,
	}
)
